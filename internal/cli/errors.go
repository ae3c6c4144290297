package cli

import "canvas-cli/internal/mutate"

func errNotFound(kind, id string) error {
	return mutate.NotFoundError{Kind: kind, ID: id}
}
