package entity

// TaskKind вид задачи детекции
type TaskKind string

const (
	TaskNail      TaskKind = "nail"      // поиск торчащих гвоздей
	TaskAlignment TaskKind = "alignment" // контроль выравнивания досок
)

// Причины вердиктов. Строки попадают в записи о браке и в журнал.
const (
	ReasonNailDetected           = "nail detected"
	ReasonOutOfTolerance         = "alignment out of tolerance"
	ReasonInconclusive           = "inconclusive"
	ReasonInsufficientDetections = "insufficient_detections"
)

// Verdict решение по одному кадру в рамках одной задачи.
// Создаётся воркером ровно один раз на кадр и дальше не изменяется.
type Verdict struct {
	SourceID     string        // камера, с которой пришёл кадр
	FrameSeq     uint64        // номер кадра
	TraceID      string        // сквозной идентификатор кадра
	Task         TaskKind      // задача, в рамках которой вынесено решение
	Detections   []Detection   // прошедшие порог детекции
	Measurements []Measurement // измерения (только для задачи выравнивания)
	IsFault      bool          // признак брака
	Reason       string        // причина решения
	Annotated    []byte        // JPEG с разметкой (только для брака, может быть nil)
}
