// Package settings persists guild-scoped settings and serves cached domains from memory.
package settings

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/small-frappuccino/arctur/pkg/log"
	"github.com/small-frappuccino/arctur/pkg/storage"
)

// ClearValue in an Edit payload removes the field.
const ClearValue = "clear"

// Payload maps field names to raw user input.
type Payload map[string]string

// Setting is one guild's record for a domain. Missing keys in Fields are unset.
type Setting struct {
	GuildID   string
	Domain    string
	Fields    map[string]string
	UpdatedAt time.Time
}

// Get returns a field value, or "" when unset.
func (s *Setting) Get(field string) string {
	if s == nil {
		return ""
	}
	return s.Fields[field]
}

func (s *Setting) clone() *Setting {
	cp := *s
	cp.Fields = make(map[string]string, len(s.Fields))
	for k, v := range s.Fields {
		cp.Fields[k] = v
	}
	return &cp
}

// Backend is the durable row store behind Store.
type Backend interface {
	GetRow(ctx context.Context, t storage.Table, guildID string) (*storage.Row, error)
	InsertRow(ctx context.Context, t storage.Table, guildID string, values map[string]string, at time.Time) (bool, error)
	UpdateRow(ctx context.Context, t storage.Table, guildID string, values map[string]string, at time.Time) (bool, error)
	DeleteRow(ctx context.Context, t storage.Table, guildID string) (bool, error)
}

// Store is the guild settings store. For each (guild, domain) the durable write
// always completes before the cached copy is replaced or evicted.
//
// Cached entries never expire. A row changed outside this process stays stale
// until Invalidate or Clear evicts it.
type Store struct {
	backend Backend
	domains map[string]*Domain
	cache   *cache.Cache
	locks   *keyedMutex
	now     func() time.Time
}

// NewStore builds a Store over backend. A nil backend yields a store whose
// operations all fail with ErrStorageUnavailable.
func NewStore(backend Backend, domains ...*Domain) *Store {
	if len(domains) == 0 {
		domains = []*Domain{About, Announcement, GuildConfig}
	}
	s := &Store{
		backend: backend,
		domains: make(map[string]*Domain, len(domains)),
		cache:   cache.New(cache.NoExpiration, 0),
		locks:   newKeyedMutex(),
		now:     time.Now,
	}
	for _, d := range domains {
		s.domains[d.Name] = d
	}
	return s
}

// Available reports whether a durable backend is configured.
func (s *Store) Available() bool { return s.backend != nil }

// Get returns the current record, or nil when the guild has none.
func (s *Store) Get(ctx context.Context, guildID, domain string) (*Setting, error) {
	d, err := s.domain(domain)
	if err != nil {
		return nil, err
	}
	key := cacheKey(guildID, d.Name)

	if d.Cached {
		if v, ok := s.cache.Get(key); ok {
			return v.(*Setting).clone(), nil
		}
	}
	if s.backend == nil {
		return nil, ErrStorageUnavailable
	}

	unlock := s.locks.Lock(key)
	defer unlock()

	// A writer may have populated the cache while we waited.
	if d.Cached {
		if v, ok := s.cache.Get(key); ok {
			return v.(*Setting).clone(), nil
		}
	}

	row, err := s.backend.GetRow(ctx, d.Table, guildID)
	if err != nil {
		return nil, s.storageErr("get", guildID, d, err)
	}
	if row == nil {
		return nil, nil
	}
	setting := fromRow(d, row)
	if d.Cached {
		s.cache.Set(key, setting.clone(), cache.NoExpiration)
	}
	return setting, nil
}

// Set creates the record. It fails with ErrAlreadyExists and leaves the
// original untouched when one exists.
func (s *Store) Set(ctx context.Context, guildID, domain string, payload Payload) (*Setting, error) {
	d, err := s.domain(domain)
	if err != nil {
		return nil, err
	}
	fields, err := validateCreate(d, payload)
	if err != nil {
		return nil, err
	}
	if s.backend == nil {
		return nil, ErrStorageUnavailable
	}

	key := cacheKey(guildID, d.Name)
	unlock := s.locks.Lock(key)
	defer unlock()

	at := s.now().UTC()
	inserted, err := s.backend.InsertRow(ctx, d.Table, guildID, toColumns(d, fields), at)
	if err != nil {
		return nil, s.storageErr("set", guildID, d, err)
	}
	if !inserted {
		return nil, ErrAlreadyExists
	}

	setting := &Setting{GuildID: guildID, Domain: d.Name, Fields: fields, UpdatedAt: at}
	if d.Cached {
		s.cache.Set(key, setting.clone(), cache.NoExpiration)
	}
	log.DatabaseLogger().WithFields(map[string]any{"guildID": guildID, "domain": d.Name}).Info("Setting created")
	return setting, nil
}

// Edit applies a tri-state patch: absent or blank keeps a field, ClearValue
// removes it, anything else replaces it after validation.
func (s *Store) Edit(ctx context.Context, guildID, domain string, payload Payload) (*Setting, error) {
	d, err := s.domain(domain)
	if err != nil {
		return nil, err
	}
	if err := checkKnownFields(d, payload); err != nil {
		return nil, err
	}
	if s.backend == nil {
		return nil, ErrStorageUnavailable
	}

	key := cacheKey(guildID, d.Name)
	unlock := s.locks.Lock(key)
	defer unlock()

	row, err := s.backend.GetRow(ctx, d.Table, guildID)
	if err != nil {
		return nil, s.storageErr("edit", guildID, d, err)
	}
	if row == nil {
		return nil, ErrNotFound
	}
	current := fromRow(d, row)

	fields, err := applyPatch(d, current.Fields, payload)
	if err != nil {
		return nil, err
	}

	at := s.now().UTC()
	updated, err := s.backend.UpdateRow(ctx, d.Table, guildID, toColumns(d, fields), at)
	if err != nil {
		return nil, s.storageErr("edit", guildID, d, err)
	}
	if !updated {
		// Deleted between read and write by something outside this store.
		s.cache.Delete(key)
		return nil, ErrNotFound
	}

	setting := &Setting{GuildID: guildID, Domain: d.Name, Fields: fields, UpdatedAt: at}
	if d.Cached {
		s.cache.Set(key, setting.clone(), cache.NoExpiration)
	}
	log.DatabaseLogger().WithFields(map[string]any{"guildID": guildID, "domain": d.Name}).Info("Setting updated")
	return setting, nil
}

// Upsert creates the record, or patches the existing one with Edit semantics.
func (s *Store) Upsert(ctx context.Context, guildID, domain string, payload Payload) (*Setting, error) {
	setting, err := s.Set(ctx, guildID, domain, payload)
	if errors.Is(err, ErrAlreadyExists) {
		return s.Edit(ctx, guildID, domain, payload)
	}
	return setting, err
}

// Clear deletes the record and evicts any cached copy.
func (s *Store) Clear(ctx context.Context, guildID, domain string) error {
	d, err := s.domain(domain)
	if err != nil {
		return err
	}
	if s.backend == nil {
		return ErrStorageUnavailable
	}

	key := cacheKey(guildID, d.Name)
	unlock := s.locks.Lock(key)
	defer unlock()

	deleted, err := s.backend.DeleteRow(ctx, d.Table, guildID)
	if err != nil {
		return s.storageErr("clear", guildID, d, err)
	}
	s.cache.Delete(key)
	if !deleted {
		return ErrNotFound
	}
	log.DatabaseLogger().WithFields(map[string]any{"guildID": guildID, "domain": d.Name}).Info("Setting cleared")
	return nil
}

// Invalidate evicts the cached copy only. The next Get reads the durable store.
func (s *Store) Invalidate(guildID, domain string) {
	key := cacheKey(guildID, domain)
	unlock := s.locks.Lock(key)
	defer unlock()
	s.cache.Delete(key)
}

// Cached reports whether a cached copy exists, without reading through.
func (s *Store) Cached(guildID, domain string) bool {
	_, ok := s.cache.Get(cacheKey(guildID, domain))
	return ok
}

func (s *Store) domain(name string) (*Domain, error) {
	d, ok := s.domains[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDomain, name)
	}
	return d, nil
}

func (s *Store) storageErr(op, guildID string, d *Domain, err error) error {
	log.DatabaseLogger().WithFields(map[string]any{
		"op":      op,
		"guildID": guildID,
		"domain":  d.Name,
	}).WithError(err).Error("Settings storage operation failed")
	return fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
}

func cacheKey(guildID, domain string) string {
	return guildID + ":" + domain
}

func fromRow(d *Domain, row *storage.Row) *Setting {
	fields := make(map[string]string, len(d.Fields))
	for _, f := range d.Fields {
		if v, ok := row.Values[f.Column]; ok && v != "" {
			fields[f.Name] = v
		}
	}
	return &Setting{GuildID: row.GuildID, Domain: d.Name, Fields: fields, UpdatedAt: row.UpdatedAt}
}

func toColumns(d *Domain, fields map[string]string) map[string]string {
	cols := make(map[string]string, len(fields))
	for _, f := range d.Fields {
		if v, ok := fields[f.Name]; ok {
			cols[f.Column] = v
		}
	}
	return cols
}

func checkKnownFields(d *Domain, payload Payload) error {
	names := make([]string, 0, len(payload))
	for name := range payload {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if _, ok := d.field(name); !ok {
			return &ValidationError{Field: name, Message: "is not a known field"}
		}
	}
	return nil
}

func validateCreate(d *Domain, payload Payload) (map[string]string, error) {
	if err := checkKnownFields(d, payload); err != nil {
		return nil, err
	}
	fields := make(map[string]string, len(payload))
	for _, f := range d.Fields {
		v := strings.TrimSpace(payload[f.Name])
		if v == "" {
			if f.Required {
				return nil, &ValidationError{Field: f.Name, Message: "is required"}
			}
			continue
		}
		if err := f.validate(v); err != nil {
			return nil, err
		}
		fields[f.Name] = v
	}
	return fields, nil
}

func applyPatch(d *Domain, current map[string]string, payload Payload) (map[string]string, error) {
	next := make(map[string]string, len(current))
	for k, v := range current {
		next[k] = v
	}
	for _, f := range d.Fields {
		raw, present := payload[f.Name]
		v := strings.TrimSpace(raw)
		switch {
		case !present || v == "":
			continue
		case strings.EqualFold(v, ClearValue):
			if f.Required {
				return nil, &ValidationError{Field: f.Name, Message: "is required and cannot be cleared"}
			}
			delete(next, f.Name)
		default:
			if err := f.validate(v); err != nil {
				return nil, err
			}
			next[f.Name] = v
		}
	}
	return next, nil
}

// keyedMutex hands out one mutex per key and drops it once no goroutine holds or waits on it.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*refMutex)}
}

func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &refMutex{}
		k.locks[key] = m
	}
	m.refs++
	k.mu.Unlock()

	m.Lock()
	return func() {
		m.Unlock()
		k.mu.Lock()
		m.refs--
		if m.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
