package port

import "context"

// Relay интерфейс канала связи с реле
type Relay interface {
	// Connect открывает соединение с реле
	Connect(portName string, baud int) error

	// Send отправляет команду реле. Отмена контекста означает
	// отсутствие подтверждения за отведённое время.
	Send(ctx context.Context, command []byte) error

	// Disconnect закрывает соединение
	Disconnect() error
}
