package relay

import (
	"context"
	"fmt"
	"sync"

	"go.bug.st/serial"

	"pallet-vision/internal/domain/port"
)

// SerialRelay канал связи с реле по последовательному порту
type SerialRelay struct {
	mu   sync.Mutex
	port serial.Port
}

// NewSerialRelay создаёт неподключённый канал реле
func NewSerialRelay() *SerialRelay {
	return &SerialRelay{}
}

// Connect открывает последовательный порт
func (r *SerialRelay) Connect(portName string, baud int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.port != nil {
		return fmt.Errorf("relay port already open")
	}

	p, err := serial.Open(portName, &serial.Mode{BaudRate: baud})
	if err != nil {
		return fmt.Errorf("open relay port %s: %w", portName, err)
	}
	r.port = p
	return nil
}

// Send пишет команду в порт. Запись в порт не прерывается контекстом,
// поэтому отмена проверяется до и после записи.
func (r *SerialRelay) Send(ctx context.Context, command []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.port == nil {
		return fmt.Errorf("relay port not open")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	n, err := r.port.Write(command)
	if err != nil {
		return fmt.Errorf("write relay command: %w", err)
	}
	if n != len(command) {
		return fmt.Errorf("write relay command: wrote %d of %d bytes", n, len(command))
	}
	return ctx.Err()
}

// Disconnect закрывает порт
func (r *SerialRelay) Disconnect() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.port == nil {
		return nil
	}
	err := r.port.Close()
	r.port = nil
	if err != nil {
		return fmt.Errorf("close relay port: %w", err)
	}
	return nil
}

// Проверка реализации интерфейса
var _ port.Relay = (*SerialRelay)(nil)
