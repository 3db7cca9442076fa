package teif

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/bfarhat/facturation-tn/internal/domain"
)

// Status état du cycle TEIF d'une facture.
//
//	pending -> generating -> generated -> signed
//
// error est accessible depuis tout état; reset() est la seule sortie d'error.
type Status int32

const (
	StatusPending Status = iota
	StatusGenerating
	StatusGenerated
	StatusSigned
	StatusError
)

// String rend l'état sous sa forme exposée à l'appelant.
func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusGenerating:
		return "generating"
	case StatusGenerated:
		return "generated"
	case StatusSigned:
		return "signed"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// Snapshot vue immuable de l'état d'une facture.
type Snapshot struct {
	Status    Status
	ErrorKind string // renseigné uniquement en état error
	UpdatedAt time.Time
}

// State machine d'états d'une facture. Les transitions concurrentes sont
// arbitrées par compare-and-swap sur le champ status: deux generate()
// simultanés ne peuvent pas tous les deux passer pending -> generating.
// Le State ne détient aucun matériel cryptographique.
type State struct {
	status atomic.Int32

	mu        sync.Mutex // protège errKind et updatedAt
	errKind   string
	updatedAt time.Time
}

func newState() *State {
	s := &State{}
	s.touch()
	return s
}

// Status retourne l'état courant.
func (s *State) Status() Status {
	return Status(s.status.Load())
}

// Snapshot retourne une vue cohérente de l'état.
func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		Status:    Status(s.status.Load()),
		ErrorKind: s.errKind,
		UpdatedAt: s.updatedAt,
	}
}

// BeginGeneration tente pending -> generating. Si une génération est déjà en
// cours, retourne domain.ErrAlreadyInProgress; depuis tout autre état,
// domain.ErrInvalidStatusTransition.
func (s *State) BeginGeneration() error {
	if s.status.CompareAndSwap(int32(StatusPending), int32(StatusGenerating)) {
		s.touch()
		return nil
	}
	if Status(s.status.Load()) == StatusGenerating {
		return domain.ErrAlreadyInProgress
	}
	return domain.ErrInvalidStatusTransition
}

// MarkGenerated termine la génération: generating -> generated.
func (s *State) MarkGenerated() error {
	return s.cas(StatusGenerating, StatusGenerated)
}

// BeginSigning tente generated -> generating (la signature réutilise l'état
// transitoire de travail). Une signature déjà en cours est signalée comme
// pour la génération.
func (s *State) BeginSigning() error {
	if s.status.CompareAndSwap(int32(StatusGenerated), int32(StatusGenerating)) {
		s.touch()
		return nil
	}
	if Status(s.status.Load()) == StatusGenerating {
		return domain.ErrAlreadyInProgress
	}
	return domain.ErrInvalidStatusTransition
}

// MarkSigned termine la signature: generating -> signed.
func (s *State) MarkSigned() error {
	return s.cas(StatusGenerating, StatusSigned)
}

// Fail bascule en état error depuis n'importe quel état et mémorise la
// nature de l'erreur pour la consultation de statut.
func (s *State) Fail(kind string) {
	s.mu.Lock()
	s.status.Store(int32(StatusError))
	s.errKind = kind
	s.updatedAt = time.Now().UTC()
	s.mu.Unlock()
}

// Reset est la seule transition sortant d'error: retour à pending.
func (s *State) Reset() error {
	if !s.status.CompareAndSwap(int32(StatusError), int32(StatusPending)) {
		return domain.ErrInvalidStatusTransition
	}
	s.mu.Lock()
	s.errKind = ""
	s.updatedAt = time.Now().UTC()
	s.mu.Unlock()
	return nil
}

func (s *State) cas(from, to Status) error {
	if !s.status.CompareAndSwap(int32(from), int32(to)) {
		return domain.ErrInvalidStatusTransition
	}
	s.touch()
	return nil
}

func (s *State) touch() {
	s.mu.Lock()
	s.updatedAt = time.Now().UTC()
	s.mu.Unlock()
}

// Registry suivi d'état par facture. Les factures sont indépendantes: seul
// l'état d'une même facture est sérialisé.
type Registry struct {
	mu     sync.RWMutex
	states map[string]*State
}

// NewRegistry crée le registre.
func NewRegistry() *Registry {
	return &Registry{states: make(map[string]*State)}
}

// Obtain retourne l'état de la facture, créé en pending au premier accès.
func (r *Registry) Obtain(invoiceID string) *State {
	r.mu.RLock()
	st, ok := r.states[invoiceID]
	r.mu.RUnlock()
	if ok {
		return st
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if st, ok = r.states[invoiceID]; ok {
		return st
	}
	st = newState()
	r.states[invoiceID] = st
	return st
}

// Snapshot retourne la vue d'état d'une facture connue.
func (r *Registry) Snapshot(invoiceID string) (Snapshot, bool) {
	r.mu.RLock()
	st, ok := r.states[invoiceID]
	r.mu.RUnlock()
	if !ok {
		return Snapshot{}, false
	}
	return st.Snapshot(), true
}
