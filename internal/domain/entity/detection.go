package entity

// Label класс обнаруженного объекта
type Label string

const (
	LabelNail         Label = "nail"          // гвоздь
	LabelBoardEdge    Label = "board_edge"    // кромка доски
	LabelStringerEdge Label = "stringer_edge" // кромка лаги поддона
)

// Box ограничивающий прямоугольник в координатах кадра
type Box struct {
	X      int // координата X левого верхнего угла
	Y      int // координата Y левого верхнего угла
	Width  int // ширина области в пикселях
	Height int // высота области в пикселях
}

// Center возвращает координаты центра области
func (b Box) Center() (x, y int) {
	return b.X + b.Width/2, b.Y + b.Height/2
}

// Left возвращает X левой кромки области
func (b Box) Left() int {
	return b.X
}

// Right возвращает X правой кромки области
func (b Box) Right() int {
	return b.X + b.Width
}

// Bottom возвращает Y нижней кромки области
func (b Box) Bottom() int {
	return b.Y + b.Height
}

// Detection один объект, найденный моделью на кадре.
// После создания только читается.
type Detection struct {
	Class      Label   // класс объекта
	Box        Box     // область объекта
	Confidence float64 // уверенность модели, [0..1]
	FrameSeq   uint64  // номер кадра-источника
}
