package common

import (
	"github.com/nspcc-dev/neo-go/pkg/interop/convert"
	"github.com/nspcc-dev/neo-go/pkg/interop/native/std"
	"github.com/nspcc-dev/neo-go/pkg/interop/storage"
)

// SetSerialized serializes data and puts it into contract storage.
func SetSerialized(ctx storage.Context, key any, value any) {
	data := std.Serialize(value)
	storage.Put(ctx, key, data)
}

// GetInt returns integer stored by the key or 0 if there is no such key.
func GetInt(ctx storage.Context, key any) int {
	data := storage.Get(ctx, key)
	if data == nil {
		return 0
	}

	return convert.ToInteger(data)
}
