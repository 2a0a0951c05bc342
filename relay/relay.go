/*
Package relay listens to the Reputation Registry notifications and passes
decoded events to a Handler. It is the receiving side of a cross-chain relay:
the Handler decides where the events go.
*/
package relay

import (
	"context"
	"errors"
	"fmt"

	"github.com/chainrepute/reputation-registry/contracts/registry/registryconst"
	"github.com/chainrepute/reputation-registry/rpc/registry"
	"github.com/nspcc-dev/neo-go/pkg/core/state"
	"github.com/nspcc-dev/neo-go/pkg/neorpc"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"go.uber.org/zap"
)

// Subscriber is a source of contract notifications. It is implemented by
// [rpcclient.WSClient].
type Subscriber interface {
	ReceiveExecutionNotifications(flt *neorpc.NotificationFilter, rcvr chan<- *state.ContainedNotificationEvent) (string, error)
	Unsubscribe(id string) error
}

// Handler processes registry events. Container is the hash of the
// transaction which produced the event.
type Handler interface {
	HandleMinted(ctx context.Context, ev *registry.MintedEvent, container util.Uint256) error
	HandleScoreUpdated(ctx context.Context, ev *registry.ScoreUpdatedEvent, container util.Uint256) error
	HandleRevoked(ctx context.Context, ev *registry.RevokedEvent, container util.Uint256) error
}

// Prm groups parameters of Listen.
type Prm struct {
	// Logger is required.
	Logger *zap.Logger

	// Subscriber is required.
	Subscriber Subscriber

	// Contract is the registry hash.
	Contract util.Uint160

	// Handler is required.
	Handler Handler

	// Metrics is optional.
	Metrics *Metrics

	// BufferSize of the notification channel. Defaults to 64.
	BufferSize int
}

const defaultBufferSize = 64

// ErrChannelClosed is returned by Listen when the subscriber closes the
// notification channel before the context is done.
var ErrChannelClosed = errors.New("notification channel closed")

// Listen subscribes to the registry notifications and dispatches them to
// prm.Handler until ctx is done. Failed events are logged and skipped.
// Listen returns nil on ctx cancellation.
func Listen(ctx context.Context, prm Prm) error {
	switch {
	case prm.Logger == nil:
		return errors.New("missing logger")
	case prm.Subscriber == nil:
		return errors.New("missing subscriber")
	case prm.Handler == nil:
		return errors.New("missing handler")
	}

	size := prm.BufferSize
	if size <= 0 {
		size = defaultBufferSize
	}

	ch := make(chan *state.ContainedNotificationEvent, size)
	contract := prm.Contract

	id, err := prm.Subscriber.ReceiveExecutionNotifications(&neorpc.NotificationFilter{Contract: &contract}, ch)
	if err != nil {
		return fmt.Errorf("subscribe to registry notifications: %w", err)
	}

	l := prm.Logger.With(zap.Stringer("contract", contract), zap.String("subscription", id))
	l.Info("listening to registry notifications")

	for {
		select {
		case <-ctx.Done():
			if err := prm.Subscriber.Unsubscribe(id); err != nil {
				l.Warn("failed to unsubscribe", zap.Error(err))
			}
			l.Info("stopped listening to registry notifications")
			return nil
		case ev, ok := <-ch:
			if !ok {
				return ErrChannelClosed
			}
			dispatch(ctx, l, prm.Handler, prm.Metrics, ev)
		}
	}
}

func dispatch(ctx context.Context, l *zap.Logger, h Handler, m *Metrics, ev *state.ContainedNotificationEvent) {
	if ev == nil {
		return
	}

	var err error

	switch ev.Name {
	case registryconst.MintedEvent:
		e := new(registry.MintedEvent)
		if err = e.FromStackItem(ev.Item); err == nil {
			err = h.HandleMinted(ctx, e, ev.Container)
		}
	case registryconst.ScoreUpdatedEvent:
		e := new(registry.ScoreUpdatedEvent)
		if err = e.FromStackItem(ev.Item); err == nil {
			err = h.HandleScoreUpdated(ctx, e, ev.Container)
		}
	case registryconst.RevokedEvent:
		e := new(registry.RevokedEvent)
		if err = e.FromStackItem(ev.Item); err == nil {
			err = h.HandleRevoked(ctx, e, ev.Container)
		}
	default:
		l.Debug("skip unknown notification", zap.String("name", ev.Name))
		return
	}

	if err != nil {
		l.Error("failed to process registry event",
			zap.String("event", ev.Name),
			zap.Stringer("tx", ev.Container),
			zap.Error(err))
		m.incFailed(ev.Name)
		return
	}

	l.Debug("registry event processed",
		zap.String("event", ev.Name),
		zap.Stringer("tx", ev.Container))
	m.incProcessed(ev.Name)
}
