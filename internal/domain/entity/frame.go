package entity

import "time"

// TriggerMode режим захвата кадров камерой
type TriggerMode string

const (
	TriggerHardware TriggerMode = "hardware" // захват по аппаратному триггеру линии
	TriggerTimed    TriggerMode = "timed"    // захват по таймеру
)

// RawFrame сырой кадр, полученный от камеры (до присвоения номера)
type RawFrame struct {
	Timestamp time.Time // момент захвата
	Width     int       // ширина в пикселях
	Height    int       // высота в пикселях
	Data      []byte    // пиксельный буфер (BGR, 3 байта на пиксель)
}

// Frame кадр с одной камеры. После создания не изменяется:
// владеет им только воркер, который его забрал из почтового ящика.
type Frame struct {
	SourceID  string      // идентификатор камеры
	Seq       uint64      // монотонный номер кадра в рамках источника
	Timestamp time.Time   // момент захвата
	Width     int         // ширина в пикселях
	Height    int         // высота в пикселях
	Data      []byte      // пиксельный буфер (BGR)
	Mode      TriggerMode // режим, в котором кадр был получен
	TraceID   string      // сквозной идентификатор для трассировки
}
