package notes_box

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/2beens/notesapp/internal/telemetry/metrics"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

//go:generate mockgen -source=$GOFILE -destination=store_mocks_test.go -package=notes_box_test

type notesStorage interface {
	GetItem(ctx context.Context, key string) ([]byte, bool, error)
	SetItem(ctx context.Context, key string, value []byte) error
	RemoveItem(ctx context.Context, key string) error
}

// Listener receives a snapshot of the collection after each state change.
type Listener func(notes []Note)

type subscription struct {
	id       uint64
	listener Listener
}

// Store owns the notes collection and its persisted entry. Mutating
// operations are serialized by writeMutex, held from the read of the current
// collection until every listener has returned, so listeners observe changes
// in operation order. The state lock is only held while the collection is
// read or swapped, a listener may read from the store but must not mutate it.
type Store struct {
	storage    notesStorage
	storageKey string
	metrics    *metrics.Manager

	writeMutex sync.Mutex
	mutex      sync.RWMutex
	notes      []Note
	loaded     bool

	listenersMutex sync.Mutex
	listeners      []subscription
	nextListenerID uint64

	NowFunc func() time.Time
	IDFunc  func() string
}

func NewStore(storage notesStorage, storageKey string, metricsManager *metrics.Manager) *Store {
	if storageKey == "" {
		storageKey = DefaultStorageKey
	}
	return &Store{
		storage:    storage,
		storageKey: storageKey,
		metrics:    metricsManager,
		notes:      []Note{},
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
		IDFunc: uuid.NewString,
	}
}

// Subscribe registers a listener. Listeners are called in registration
// order. The returned func removes it and is safe to call more than once.
func (s *Store) Subscribe(listener Listener) (unsubscribe func()) {
	s.listenersMutex.Lock()
	defer s.listenersMutex.Unlock()

	id := s.nextListenerID
	s.nextListenerID++
	s.listeners = append(s.listeners, subscription{id: id, listener: listener})

	return func() {
		s.listenersMutex.Lock()
		defer s.listenersMutex.Unlock()
		for i, sub := range s.listeners {
			if sub.id == id {
				s.listeners = append(s.listeners[:i:i], s.listeners[i+1:]...)
				return
			}
		}
	}
}

func (s *Store) ListenersCount() int {
	s.listenersMutex.Lock()
	defer s.listenersMutex.Unlock()
	return len(s.listeners)
}

// Notes returns a copy of the collection, most recent first.
func (s *Store) Notes() []Note {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return cloneNotes(s.notes)
}

func (s *Store) Count() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return len(s.notes)
}

func (s *Store) Get(id string) (Note, bool) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	for _, n := range s.notes {
		if n.ID == id {
			return n, true
		}
	}
	return Note{}, false
}

func (s *Store) Loaded() bool {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.loaded
}

func (s *Store) CreateNote(ctx context.Context) (Note, error) {
	s.writeMutex.Lock()
	defer s.writeMutex.Unlock()

	now := s.NowFunc()
	note := Note{
		ID:        s.IDFunc(),
		Title:     DefaultTitle,
		Content:   "",
		CreatedAt: now,
		UpdatedAt: now,
	}

	updated := make([]Note, 0, len(s.notes)+1)
	updated = append(updated, note)
	updated = append(updated, s.notes...)

	if err := s.persist(ctx, updated); err != nil {
		return Note{}, err
	}

	s.commitAndNotify(updated)
	if s.metrics != nil {
		s.metrics.CounterNotesCreated.Inc()
	}

	log.Debugf("note created: %s", note.ID)
	return note, nil
}

// UpdateNote replaces the supplied fields of the note with the given id. An
// unknown id leaves the collection as is, it is still written back.
func (s *Store) UpdateNote(ctx context.Context, id string, data UpdateData) error {
	s.writeMutex.Lock()
	defer s.writeMutex.Unlock()

	found := false
	updated := make([]Note, len(s.notes))
	for i, n := range s.notes {
		if n.ID == id {
			found = true
			data.apply(&n)
			n.UpdatedAt = s.NowFunc()
			if n.UpdatedAt.Before(n.CreatedAt) {
				n.UpdatedAt = n.CreatedAt
			}
		}
		updated[i] = n
	}

	if err := s.persist(ctx, updated); err != nil {
		return err
	}

	s.commitAndNotify(updated)
	if found && s.metrics != nil {
		s.metrics.CounterNotesUpdated.Inc()
	}
	if !found {
		log.Tracef("update note: no note with id [%s]", id)
	}

	return nil
}

func (s *Store) DeleteNote(ctx context.Context, id string) error {
	s.writeMutex.Lock()
	defer s.writeMutex.Unlock()

	found := false
	updated := make([]Note, 0, len(s.notes))
	for _, n := range s.notes {
		if n.ID == id {
			found = true
			continue
		}
		updated = append(updated, n)
	}

	if err := s.persist(ctx, updated); err != nil {
		return err
	}

	s.commitAndNotify(updated)
	if found && s.metrics != nil {
		s.metrics.CounterNotesDeleted.Inc()
	}

	return nil
}

// LoadFromStorage replaces the collection with the persisted one. A missing
// or empty entry keeps the current collection, and any read or parse failure
// is logged and resets the collection to empty. It never fails.
func (s *Store) LoadFromStorage(ctx context.Context) {
	s.writeMutex.Lock()
	defer s.writeMutex.Unlock()

	s.mutex.Lock()
	s.loaded = true
	s.mutex.Unlock()

	data, ok, err := s.storage.GetItem(ctx, s.storageKey)
	if err != nil {
		s.loadFailed(fmt.Errorf("read entry: %w", err))
		return
	}
	if !ok || len(data) == 0 {
		log.Debugf("no persisted notes under [%s]", s.storageKey)
		return
	}

	notes, err := decodeNotes(data)
	if err != nil {
		s.loadFailed(err)
		return
	}

	log.Debugf("loaded %d notes from storage", len(notes))
	s.commitAndNotify(notes)
}

func (s *Store) loadFailed(err error) {
	log.Errorf("failed to load notes from storage: %s", err)
	if s.metrics != nil {
		s.metrics.CounterStorageLoadFailure.Inc()
	}
	s.commitAndNotify([]Note{})
}

// ClearAll removes the persisted entry and empties the collection.
func (s *Store) ClearAll(ctx context.Context) error {
	s.writeMutex.Lock()
	defer s.writeMutex.Unlock()

	if err := s.storage.RemoveItem(ctx, s.storageKey); err != nil {
		return fmt.Errorf("remove notes entry: %w", err)
	}

	s.commitAndNotify([]Note{})
	if s.metrics != nil {
		s.metrics.CounterNotesCleared.Inc()
	}

	return nil
}

// persist must be called with s.writeMutex held.
func (s *Store) persist(ctx context.Context, notes []Note) error {
	data, err := encodeNotes(notes)
	if err != nil {
		return fmt.Errorf("encode notes: %w", err)
	}
	if err := s.storage.SetItem(ctx, s.storageKey, data); err != nil {
		return fmt.Errorf("persist notes: %w", err)
	}
	return nil
}

// commitAndNotify must be called with s.writeMutex held. Listeners run
// after the state lock is released.
func (s *Store) commitAndNotify(notes []Note) {
	snapshot := cloneNotes(notes)

	s.mutex.Lock()
	s.notes = notes
	s.mutex.Unlock()

	s.listenersMutex.Lock()
	listeners := make([]Listener, 0, len(s.listeners))
	for _, sub := range s.listeners {
		listeners = append(listeners, sub.listener)
	}
	s.listenersMutex.Unlock()

	for _, l := range listeners {
		l(cloneNotes(snapshot))
	}
}

func cloneNotes(notes []Note) []Note {
	cloned := make([]Note, len(notes))
	copy(cloned, notes)
	return cloned
}
