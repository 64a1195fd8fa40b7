package entity

import "time"

// FaultRecord запись о браке для журнала аудита.
// Создаётся оркестратором, сохраняется ровно один раз и не изменяется.
type FaultRecord struct {
	ID             uint64        // уникальный монотонный номер
	Timestamp      time.Time     // момент фиксации брака
	Task           TaskKind      // задача, обнаружившая брак
	SourceID       string        // камера-источник
	FrameSeq       uint64        // номер кадра
	Details        string        // описание брака
	Measurement    *float64      // измерение в мм (nil для гвоздей)
	RelayTriggered bool          // подтвердило ли реле срабатывание
	RelayLatency   time.Duration // время от запроса до подтверждения реле
}

// FaultFilter параметры выборки записей о браке
type FaultFilter struct {
	From     *time.Time // не раньше этого момента
	To       *time.Time // не позже этого момента
	Task     TaskKind   // пустое значение — все задачи
	SourceID string     // пустая строка — все камеры
}

// FaultStats сводка по записям о браке
type FaultStats struct {
	Total  int              // всего записей
	ByTask map[TaskKind]int // количество по задачам
}
