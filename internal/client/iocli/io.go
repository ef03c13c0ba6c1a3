package iocli

//go:generate go tool moq -out io_mock.go . IO

// IO абстракция терминального ввода-вывода для тестируемости команд
type IO interface {
	Println(a ...any)
	Printf(format string, a ...any)
	ReadInput(prompt string) (string, error)
	ReadPassword(prompt string) (string, error)
}
