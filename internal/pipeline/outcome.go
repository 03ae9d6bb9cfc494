package pipeline

import "errors"

// ErrCancelled 任务在处理过程中被取消
var ErrCancelled = errors.New("任务已取消")

// fatalError 标记不可重试的错误（配置错误、数据错误）
// 未标记的错误默认视为可重试的基础设施故障
type fatalError struct {
	err error
}

func (e *fatalError) Error() string { return e.err.Error() }
func (e *fatalError) Unwrap() error { return e.err }

// Fatal 将错误标记为不可重试
func Fatal(err error) error {
	if err == nil {
		return nil
	}
	return &fatalError{err: err}
}

// IsFatal 错误是否不可重试
func IsFatal(err error) bool {
	var fe *fatalError
	return errors.As(err, &fe)
}
