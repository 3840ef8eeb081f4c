package ports

import "github.com/user/framefetch/pkg/index"

// IndexCache stores built indexes by source identity.
type IndexCache interface {
	// Load returns the index for identity. ok is false on a miss.
	Load(identity string) (x *index.Index, ok bool, err error)

	// Save stores x for identity.
	Save(identity string, x *index.Index) error
}
