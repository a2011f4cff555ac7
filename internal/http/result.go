package httpapi

// Result 统一响应结构
// - code: 成功 2000，失败 -1
// - type: 'success' | 'error'
// - message: string
// - result: any
type Result[T any] struct {
	Code    int    `json:"code"`
	Type    string `json:"type"`
	Message string `json:"message"`
	Result  T      `json:"result"`
}

const (
	ResultSuccess = 2000
	ResultError   = -1
)

func Ok[T any](result T) Result[T] {
	return Result[T]{Code: ResultSuccess, Type: "success", Message: "ok", Result: result}
}

func Fail(message string) Result[any] {
	return Result[any]{Code: ResultError, Type: "error", Message: message, Result: nil}
}

// FailKind 失败结果，result 中携带错误分类
func FailKind(message, kind string) Result[map[string]string] {
	return Result[map[string]string]{
		Code:    ResultError,
		Type:    "error",
		Message: message,
		Result:  map[string]string{"kind": kind},
	}
}
