package command

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownCommand  = errors.New("unknown command")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrIllegalAction   = errors.New("illegal action")
	ErrGameOver        = errors.New("game over")
)

// Error is a user-facing rejection. Kind is one of the sentinel errors above.
type Error struct {
	Kind   error
	Title  string
	Detail string
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return e.Kind.Error()
	}
	return e.Kind.Error() + ": " + e.Detail
}

func (e *Error) Unwrap() error { return e.Kind }

func Invalid(title, format string, args ...any) error {
	return &Error{Kind: ErrInvalidArgument, Title: title, Detail: fmt.Sprintf(format, args...)}
}

func Illegal(title, format string, args ...any) error {
	return &Error{Kind: ErrIllegalAction, Title: title, Detail: fmt.Sprintf(format, args...)}
}

func GameOver(format string, args ...any) error {
	return &Error{Kind: ErrGameOver, Title: "Game over", Detail: fmt.Sprintf(format, args...)}
}

func unknown(detail string) error {
	return &Error{Kind: ErrUnknownCommand, Title: "Unknown command", Detail: detail}
}

// Describe returns the title and detail to show for err.
func Describe(err error) (string, string) {
	var ce *Error
	if errors.As(err, &ce) {
		title := ce.Title
		if title == "" {
			title = titleFor(ce.Kind)
		}
		return title, ce.Detail
	}
	return titleFor(err), err.Error()
}

func titleFor(err error) string {
	switch {
	case errors.Is(err, ErrUnknownCommand):
		return "Unknown command"
	case errors.Is(err, ErrInvalidArgument):
		return "Invalid argument"
	case errors.Is(err, ErrIllegalAction):
		return "Not now"
	case errors.Is(err, ErrGameOver):
		return "Game over"
	default:
		return "Error"
	}
}
