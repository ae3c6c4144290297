package mutate

import "fmt"

type NotFoundError struct {
	Kind string
	ID   string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.ID)
}

// WrongTypeError reports an item whose data variant cannot serve a request.
type WrongTypeError struct {
	ID   string
	Want string
	Got  string
}

func (e WrongTypeError) Error() string {
	return fmt.Sprintf("item %s is a %s, not a %s", e.ID, e.Got, e.Want)
}
