package greeting

// Message is the fixed greeting served on the root path.
const Message = "Hello, World! test2"

const contentTypeText = "text/plain; charset=utf-8"

// GetOutput carries the plain-text greeting. A []byte body is written as-is by huma.
type GetOutput struct {
	ContentType string `header:"Content-Type"`
	Body        []byte
}
