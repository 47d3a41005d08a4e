//go:build !swagger

package httpapi

import (
	"testing"

	"github.com/go-chi/chi/v5"
)

func TestMountSwaggerNoop(t *testing.T) {
	r := chi.NewRouter()
	MountSwagger(r)
	if len(r.Routes()) != 0 {
		t.Fatal("stub mounted routes")
	}
}
