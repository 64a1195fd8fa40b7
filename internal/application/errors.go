package app

import "errors"

// Классы отказов конвейера. Отказы одного потока камер никогда
// не распространяются на другие потоки.
var (
	// ErrInferenceTimeout модель не уложилась в таймаут; вердикт
	// считается неубедительным, а не браком
	ErrInferenceTimeout = errors.New("inference timed out")

	// ErrInferenceFailure модель вернула ошибку; трактуется как
	// неубедительный результат, как и таймаут
	ErrInferenceFailure = errors.New("inference failed")

	// ErrRelayTimeout реле не подтвердило срабатывание за таймаут
	ErrRelayTimeout = errors.New("relay ack timed out")

	// ErrRelayComm ошибка связи с реле; актуатор переходит
	// в состояние Degraded
	ErrRelayComm = errors.New("relay communication failed")
)
