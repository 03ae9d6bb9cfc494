package errcode

// 通用错误码
const (
	Success             = 0
	InternalServerError = 10001
	ParamBindError      = 10002
	NotFoundError       = 10003
	UnauthorizedError   = 10004
)

// 文件相关错误码
const (
	FileUploadFailed   = 20001
	FileParseFailed    = 20002
	FileDownloadFailed = 20003
)

// 知识库相关错误码
const (
	KBNotFound        = 30001
	KBCreateFailed    = 30002
	TaskNotFound      = 30003
	TaskEnqueueFailed = 30004
)

// 检索相关错误码
const (
	RetrieveConfigError    = 40001
	RetrieveTransientError = 40002
)
