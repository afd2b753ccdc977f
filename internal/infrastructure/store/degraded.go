package store

import (
	"context"
	"sync/atomic"
)

type degradedKey struct{}

// TrackDegraded devuelve un contexto en el que los backends anotan las lecturas que
// fallaron y se resolvieron como vacías. La función devuelta informa si hubo alguna.
func TrackDegraded(ctx context.Context) (context.Context, func() bool) {
	flag := new(atomic.Bool)
	return context.WithValue(ctx, degradedKey{}, flag), flag.Load
}

// MarkDegraded anota en ctx una lectura degradada. Sin TrackDegraded no hace nada.
func MarkDegraded(ctx context.Context) {
	if flag, ok := ctx.Value(degradedKey{}).(*atomic.Bool); ok {
		flag.Store(true)
	}
}
