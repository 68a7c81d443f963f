package core

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync/atomic"

	"github.com/offcache/offcache/cache"

	"github.com/rs/zerolog/log"
)

// State is the lifecycle state of a worker version.
type State int32

const (
	// StateParked is the initial state, and the state after a failed install.
	StateParked State = iota
	StateInstalling
	StateWaiting
	StateActivating
	StateActivated
)

func (s State) String() string {
	switch s {
	case StateInstalling:
		return "installing"
	case StateWaiting:
		return "waiting"
	case StateActivating:
		return "activating"
	case StateActivated:
		return "activated"
	default:
		return "parked"
	}
}

type atomicState struct {
	v atomic.Int32
}

func (s *atomicState) set(state State) { s.v.Store(int32(state)) }
func (s *atomicState) get() State      { return State(s.v.Load()) }

// State returns the worker's current lifecycle state.
func (w *Worker) State() State {
	return w.state.get()
}

// Install populates the current static namespace with the precache manifest.
// Installation is all-or-nothing: if any manifest URL fails to fetch or
// store, the partially filled namespace is deleted and the install attempt
// fails. Retrying is the caller's concern. On success the worker either
// parks in the waiting state or, with SkipWaiting set, activates directly.
func (w *Worker) Install(ctx context.Context) error {
	w.state.set(StateInstalling)
	log.Info().Str("version", w.StaticName()).Msg("Installing")

	ns, err := w.storage.Open(w.StaticName())
	if err != nil {
		w.state.set(StateParked)
		return fmt.Errorf("open static namespace: %w", err)
	}
	if err := w.precache(ctx, ns); err != nil {
		// never leave a referenced-but-incomplete current namespace behind
		if derr := w.storage.Delete(w.StaticName()); derr != nil {
			log.Error().Err(derr).Str("namespace", w.StaticName()).Msg("Could not delete incomplete namespace")
		}
		w.state.set(StateParked)
		return err
	}

	log.Info().Int("urls", len(w.manifest)).Msg("All manifest resources cached")
	w.state.set(StateWaiting)
	if w.skipWaiting {
		return w.Activate(ctx)
	}
	return nil
}

func (w *Worker) precache(ctx context.Context, ns cache.Namespace) error {
	for _, raw := range w.manifest {
		u, err := url.Parse(raw)
		if err != nil {
			return fmt.Errorf("manifest url %q: %w", raw, err)
		}
		target := w.originURL.ResolveReference(u)
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
		if err != nil {
			return fmt.Errorf("precache %q: %w", raw, err)
		}
		w.metrics.NetworkFetch()
		res, err := w.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("precache %q: %w", raw, err)
		}
		if res.StatusCode != http.StatusOK {
			res.Body.Close()
			return fmt.Errorf("precache %q: unexpected status %d", raw, res.StatusCode)
		}
		snapshot, err := snapshotResponse(res)
		res.Body.Close()
		if err != nil {
			return fmt.Errorf("precache %q: %w", raw, err)
		}
		if err := ns.Put(Key(http.MethodGet, target), snapshot); err != nil {
			return fmt.Errorf("precache %q: %w", raw, err)
		}
		log.Trace().Str("url", raw).Msg("Precached")
	}
	return nil
}

// Activate makes this worker version current: every namespace that is
// neither the current static nor the current API namespace is deleted, and
// the claim hook then hands open clients over. The sweep completes before
// claiming; the deletions themselves are unordered.
func (w *Worker) Activate(ctx context.Context) error {
	_ = ctx
	w.state.set(StateActivating)
	log.Info().Str("version", w.StaticName()).Msg("Activating")

	names, err := w.storage.Names()
	if err != nil {
		w.state.set(StateParked)
		return fmt.Errorf("list namespaces: %w", err)
	}
	for _, name := range names {
		if name == w.StaticName() || name == w.APIName() {
			continue
		}
		log.Debug().Str("namespace", name).Msg("Deleting old cache namespace")
		if err := w.storage.Delete(name); err != nil {
			log.Warn().Err(err).Str("namespace", name).Msg("Could not delete old namespace")
		}
	}

	if w.onClaim != nil {
		w.onClaim()
	}
	w.state.set(StateActivated)
	log.Info().Msg("Activated")
	return nil
}

// Message types accepted over the control channel.
const (
	MessageSkipWaiting = "SKIP_WAITING"
	MessageGetVersion  = "GET_VERSION"
)

type Message struct {
	Type string `json:"type"`
}

type MessageReply struct {
	Version string `json:"version,omitempty"`
}

// Message handles a control message. SKIP_WAITING forces a waiting worker to
// activate; GET_VERSION reports the current namespace version string.
// Unknown message types are ignored.
func (w *Worker) Message(ctx context.Context, msg Message) MessageReply {
	switch msg.Type {
	case MessageSkipWaiting:
		if w.State() == StateWaiting {
			if err := w.Activate(ctx); err != nil {
				log.Error().Err(err).Msg("Forced activation failed")
			}
		}
		return MessageReply{}
	case MessageGetVersion:
		return MessageReply{Version: w.StaticName()}
	default:
		log.Debug().Str("type", msg.Type).Msg("Ignoring unknown message")
		return MessageReply{}
	}
}
