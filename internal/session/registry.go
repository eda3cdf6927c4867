// Package session implements the Session Registry (C1): a process-wide
// table of isolated sessions, each owning named contexts, decompositions,
// variables, and execution history, with memory accounting, TTL/LRU
// eviction, and coordinated cache invalidation (invariant M1).
//
// Grounded on the teacher's apps/edge-mcp/internal/mcp/handler.go
// (Handler.sessions / sessionsMu connection-bookkeeping pattern) and the
// status/lifecycle enum naming of pkg/models/session.go, generalized from
// "one session per transport connection" to this spec's session/context/
// variable/decomposition ownership model.
package session

import (
	"regexp"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ctxrelay/rlm-server/internal/apperrors"
	"github.com/ctxrelay/rlm-server/internal/cache"
	"github.com/ctxrelay/rlm-server/internal/decompose"
	"github.com/ctxrelay/rlm-server/internal/observability"
	"github.com/ctxrelay/rlm-server/internal/persistence"
	"github.com/ctxrelay/rlm-server/internal/rank"
	"github.com/ctxrelay/rlm-server/internal/search"
	"github.com/ctxrelay/rlm-server/internal/textstore"
)

// DefaultSessionID is the distinguished session for clients that do not
// manage sessions explicitly. It is never evicted.
const DefaultSessionID = "default"

var (
	contextIDPattern  = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
	variableIDPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

var reservedVariableNames = map[string]bool{
	"__proto__": true, "constructor": true, "prototype": true,
}

// AppendMode selects append vs. prepend for Registry.Append.
type AppendMode string

const (
	ModeAppend  AppendMode = "append"
	ModePrepend AppendMode = "prepend"
)

// HistoryEntry is one bounded, FIFO execution-history record. Populated
// by the RPC layer from a sandbox.ExecutionRecord; kept as an independent
// type here so this package never imports internal/sandbox.
type HistoryEntry struct {
	Code       string
	Success    bool
	Output     string
	Error      string
	DurationMs int64
	CreatedAt  time.Time
}

// AnswerState is the distinguished `answer` variable from spec §3.
type AnswerState struct {
	Content string
	Ready   bool
}

// Session is the unit of isolation: contexts, variables, decompositions,
// execution history, and answer state, serialized by its own write lock
// (spec §5: "each session behaves as a serialization domain").
type Session struct {
	mu sync.RWMutex

	ID           string
	CreatedAt    time.Time
	LastActivity time.Time

	contexts           map[string]*textstore.Context
	variables          map[string]interface{}
	decompositions     map[string]*decompose.Record
	lastDecomposeByCtx map[string]string // contextID -> recordID, most recent
	lastDecomposeID    string            // session-global most recent record
	history            []HistoryEntry
	answer             AnswerState
}

func newSession(id string) *Session {
	now := time.Now().UTC()
	return &Session{
		ID: id, CreatedAt: now, LastActivity: now,
		contexts:           make(map[string]*textstore.Context),
		variables:          make(map[string]interface{}),
		decompositions:     make(map[string]*decompose.Record),
		lastDecomposeByCtx: make(map[string]string),
		answer:             AnswerState{Content: "", Ready: false},
	}
}

func (s *Session) touch() { s.LastActivity = time.Now().UTC() }

// EstimatedMemory sums context content and variable memory estimates.
func (s *Session) EstimatedMemory() int64 {
	var total int64
	for _, c := range s.contexts {
		total += EstimateMemory(c.Content)
	}
	for _, v := range s.variables {
		total += EstimateMemory(v)
	}
	return total
}

// --- sandbox.StateAccessor surface (structural; no import of sandbox) ---

func (s *Session) GetContext(id string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.contexts[id]
	if !ok {
		return "", false
	}
	return c.Content, true
}

func (s *Session) GetContextMetadata(id string) (map[string]interface{}, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.contexts[id]
	if !ok {
		return nil, false
	}
	return map[string]interface{}{
		"length":    c.Metadata.Length,
		"lineCount": c.Metadata.LineCount,
		"wordCount": c.Metadata.WordCount,
		"structure": string(c.Metadata.Structure),
	}, true
}

func (s *Session) ListContexts() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.contexts))
	for id := range s.contexts {
		ids = append(ids, id)
	}
	return ids
}

func (s *Session) GetVar(name string) (interface{}, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.variables[name]
	return v, ok
}

func (s *Session) SetVar(name string, value interface{}) bool {
	if !validVariableName(name) {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.variables[name] = value
	s.touch()
	return true
}

func (s *Session) ListVars() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]interface{}, len(s.variables))
	for k, v := range s.variables {
		out[k] = v
	}
	return out
}

func (s *Session) DeleteVar(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.variables[name]; !ok {
		return false
	}
	delete(s.variables, name)
	return true
}

func (s *Session) GetAnswer() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.answer.Content, s.answer.Ready
}

func (s *Session) SetAnswer(content string, ready bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.answer = AnswerState{Content: content, Ready: ready}
	s.touch()
}

func (s *Session) AppendAnswer(content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.answer.Content += content
	s.touch()
}

func (s *Session) AppendHistory(entry HistoryEntry, maxDepth int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, entry)
	if maxDepth > 0 && len(s.history) > maxDepth {
		s.history = s.history[len(s.history)-maxDepth:]
	}
	s.touch()
}

func (s *Session) History() []HistoryEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]HistoryEntry, len(s.history))
	copy(out, s.history)
	return out
}

func validVariableName(name string) bool {
	if len(name) == 0 || len(name) > 100 {
		return false
	}
	if reservedVariableNames[name] {
		return false
	}
	return variableIDPattern.MatchString(name)
}

func validContextID(id string) bool {
	return len(id) > 0 && len(id) <= 100 && contextIDPattern.MatchString(id)
}

// Registry is the process-wide session table, plus the three downstream
// caches it coordinates invalidation across per invariant M1.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	maxSessions       int
	maxContextBytes   int64
	maxSessionMemory  int64
	maxContexts       int
	maxVariables      int
	maxHistoryEntries int
	ttl               time.Duration

	chunkCache *decompose.ChunkCache
	indexCache *rank.IndexCache
	rankQuery  *rank.QueryCache
	searchQuery *search.QueryCache

	store persistence.Store

	logger  observability.Logger
	metrics *observability.Metrics

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// Config bundles the tunables Registry needs, decoupled from
// internal/config so this package stays independently testable.
type Config struct {
	MaxSessions       int
	MaxContextBytes   int64
	MaxSessionMemory  int64
	MaxContexts       int
	MaxVariables      int
	MaxHistoryEntries int
	TTL               time.Duration
	ScavengeInterval  time.Duration

	ChunkCacheEntries int
	IndexCacheEntries int
	QueryCacheEntries int
}

// New builds a Registry with the `default` session pre-created, and
// starts the background scavenger goroutine (60s tick per spec §4.1).
func New(cfg Config, store persistence.Store, logger observability.Logger, metrics *observability.Metrics) *Registry {
	if store == nil {
		store = persistence.NoopStore{}
	}
	r := &Registry{
		sessions:          make(map[string]*Session),
		maxSessions:       cfg.MaxSessions,
		maxContextBytes:   cfg.MaxContextBytes,
		maxSessionMemory:  cfg.MaxSessionMemory,
		maxContexts:       cfg.MaxContexts,
		maxVariables:      cfg.MaxVariables,
		maxHistoryEntries: cfg.MaxHistoryEntries,
		ttl:               cfg.TTL,
		chunkCache:        decompose.NewChunkCache(cfg.ChunkCacheEntries),
		indexCache:        rank.NewIndexCache(cfg.IndexCacheEntries),
		rankQuery:         rank.NewQueryCache(cfg.QueryCacheEntries),
		searchQuery:       search.NewQueryCache(cfg.QueryCacheEntries),
		store:             store,
		logger:            logger,
		metrics:           metrics,
		stopCh:            make(chan struct{}),
	}
	r.sessions[DefaultSessionID] = newSession(DefaultSessionID)

	interval := cfg.ScavengeInterval
	if interval <= 0 {
		interval = 60 * time.Second
	}
	r.wg.Add(1)
	go r.scavenge(interval)

	return r
}

// Close stops the scavenger goroutine.
func (r *Registry) Close() {
	close(r.stopCh)
	r.wg.Wait()
}

func (r *Registry) ChunkCache() *decompose.ChunkCache   { return r.chunkCache }
func (r *Registry) IndexCache() *rank.IndexCache        { return r.indexCache }
func (r *Registry) RankQueryCache() *rank.QueryCache    { return r.rankQuery }
func (r *Registry) SearchQueryCache() *search.QueryCache { return r.searchQuery }

// CreateSession allocates a new session id, evicting the LRU non-default
// session first if the configured cap is already reached.
func (r *Registry) CreateSession() string {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.maxSessions > 0 && len(r.sessions) >= r.maxSessions {
		r.evictLRULocked()
	}

	id := uuid.NewString()
	r.sessions[id] = newSession(id)
	if r.metrics != nil {
		r.metrics.IncCounter("sessions_created")
	}
	return id
}

// GetOrDefault resolves an optional session id to its Session, creating
// the `default` session lazily if somehow absent.
func (r *Registry) GetOrDefault(id string) (*Session, error) {
	if id == "" {
		id = DefaultSessionID
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		if id == DefaultSessionID {
			s = newSession(DefaultSessionID)
			r.sessions[DefaultSessionID] = s
			return s, nil
		}
		return nil, apperrors.Newf(apperrors.SessionNotFound, "session %q not found", id)
	}
	return s, nil
}

func (r *Registry) evictLRULocked() {
	var lruID string
	var lruTime time.Time
	for id, s := range r.sessions {
		if id == DefaultSessionID {
			continue
		}
		s.mu.RLock()
		last := s.LastActivity
		s.mu.RUnlock()
		if lruID == "" || last.Before(lruTime) {
			lruID, lruTime = id, last
		}
	}
	if lruID != "" {
		r.destroyLocked(lruID)
		if r.metrics != nil {
			r.metrics.IncCounter("sessions_evicted")
		}
	}
}

func (r *Registry) scavenge(interval time.Duration) {
	defer r.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			r.scavengeOnce()
		case <-r.stopCh:
			return
		}
	}
}

func (r *Registry) scavengeOnce() {
	if r.ttl <= 0 {
		return
	}
	cutoff := time.Now().Add(-r.ttl)

	r.mu.Lock()
	defer r.mu.Unlock()
	for id, s := range r.sessions {
		if id == DefaultSessionID {
			continue
		}
		s.mu.RLock()
		last := s.LastActivity
		s.mu.RUnlock()
		if last.Before(cutoff) {
			r.destroyLocked(id)
			if r.metrics != nil {
				r.metrics.IncCounter("sessions_evicted")
			}
		}
	}
}

// destroyLocked removes a session and its cache entries; caller holds
// r.mu.
func (r *Registry) destroyLocked(id string) {
	delete(r.sessions, id)
	r.invalidateSessionCaches(id)
}

func (r *Registry) invalidateSessionCaches(sessionID string) {
	prefix := cache.Key(sessionID)
	r.chunkCache.InvalidatePrefix(prefix)
	r.indexCache.InvalidatePrefix(prefix)
	r.rankQuery.InvalidatePrefix(prefix)
	r.searchQuery.InvalidatePrefix(prefix)
}

// invalidateContextCaches implements steps (b)(c)(d) of invariant M1: drop
// every chunk/index/query-cache entry with the matching (session,
// context) prefix, called BEFORE the new content is published.
func (r *Registry) invalidateContextCaches(sessionID, contextID string) {
	prefix := decompose.SessionContextPrefix(sessionID, contextID)
	r.chunkCache.InvalidatePrefix(prefix)
	r.indexCache.InvalidatePrefix(prefix)
	r.rankQuery.InvalidatePrefix(prefix)
	r.searchQuery.InvalidatePrefix(prefix)
}

// Load creates or replaces a named context (rlm_load_context).
func (r *Registry) Load(sessionID, contextID, text string, maxTextBytes int64) (*textstore.Context, error) {
	if !validContextID(contextID) {
		return nil, apperrors.New(apperrors.ContextInvalidID, "context id must match [A-Za-z0-9_-]+, max 100 chars")
	}
	limit := r.maxContextBytes
	if maxTextBytes > 0 {
		limit = maxTextBytes
	}
	if limit > 0 && int64(len(text)) > limit {
		return nil, apperrors.Newf(apperrors.ContextTooLarge, "context text exceeds the %d byte cap", limit)
	}

	s, err := r.GetOrDefault(sessionID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.contexts[contextID]; !exists && r.maxContexts > 0 && len(s.contexts) >= r.maxContexts {
		return nil, apperrors.New(apperrors.ResourceVariableLimit, "context count limit reached")
	}

	projected := s.EstimatedMemory() - estimateExistingContext(s, contextID) + EstimateMemory(text)
	if r.maxSessionMemory > 0 && projected > r.maxSessionMemory {
		return nil, apperrors.New(apperrors.SessionMemoryExceeded, "projected session memory exceeds cap")
	}

	newCtx := textstore.New(contextID, text, time.Now().UTC())

	// Invariant M1: snapshot, then invalidate (b)(c)(d), then publish (e).
	r.snapshotIfEnabled(s.ID, contextID, text, newCtx.Metadata, newCtx.CreatedAt)
	r.invalidateContextCaches(s.ID, contextID)
	s.contexts[contextID] = newCtx
	s.touch()

	if r.metrics != nil {
		r.metrics.IncCounter("contexts_loaded")
	}
	return newCtx, nil
}

func estimateExistingContext(s *Session, contextID string) int64 {
	if c, ok := s.contexts[contextID]; ok {
		return EstimateMemory(c.Content)
	}
	return 0
}

// Append appends or prepends text to an existing (or newly created)
// context.
func (r *Registry) Append(sessionID, contextID, text string, mode AppendMode, createIfMissing bool, maxTextBytes int64) (*textstore.Context, error) {
	s, err := r.GetOrDefault(sessionID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.contexts[contextID]
	if !ok {
		if !createIfMissing {
			return nil, apperrors.Newf(apperrors.ContextNotFound, "context %q not found", contextID)
		}
		if !validContextID(contextID) {
			return nil, apperrors.New(apperrors.ContextInvalidID, "context id must match [A-Za-z0-9_-]+, max 100 chars")
		}
		existing = textstore.New(contextID, "", time.Now().UTC())
	}

	var combined string
	if mode == ModePrepend {
		combined = text + existing.Content
	} else {
		combined = existing.Content + text
	}

	limit := r.maxContextBytes
	if maxTextBytes > 0 {
		limit = maxTextBytes
	}
	if limit > 0 && int64(len(combined)) > limit {
		// Atomicity A1: the prior Context remains intact on failure.
		return nil, apperrors.Newf(apperrors.ContextTooLarge, "appended context would exceed the %d byte cap", limit)
	}

	projected := s.EstimatedMemory() - EstimateMemory(existing.Content) + EstimateMemory(combined)
	if r.maxSessionMemory > 0 && projected > r.maxSessionMemory {
		return nil, apperrors.New(apperrors.SessionMemoryExceeded, "projected session memory exceeds cap")
	}

	updated := existing.WithContent(combined)

	r.snapshotIfEnabled(s.ID, contextID, combined, updated.Metadata, updated.CreatedAt)
	r.invalidateContextCaches(s.ID, contextID)
	s.contexts[contextID] = updated
	s.touch()

	if r.metrics != nil {
		r.metrics.IncCounter("contexts_appended")
	}
	return updated, nil
}

// Unload drops a context from live memory, snapshotting first if storage
// is enabled (open question §D.1: snapshot happens synchronously as step
// (a) of M1, before invalidation, on every mutating op including this
// implicit snapshot).
func (r *Registry) Unload(sessionID, contextID string) error {
	s, err := r.GetOrDefault(sessionID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.contexts[contextID]
	if !ok {
		return apperrors.Newf(apperrors.ContextNotFound, "context %q not found", contextID)
	}

	r.snapshotIfEnabled(s.ID, contextID, existing.Content, existing.Metadata, existing.CreatedAt)
	r.invalidateContextCaches(s.ID, contextID)
	delete(s.contexts, contextID)
	_ = r.store.DeleteContext(s.ID, contextID)
	s.touch()

	if r.metrics != nil {
		r.metrics.IncCounter("contexts_unloaded")
	}
	return nil
}

func (r *Registry) snapshotIfEnabled(sessionID, contextID, content string, meta textstore.Metadata, createdAt time.Time) {
	metaMap := map[string]interface{}{
		"length": meta.Length, "lineCount": meta.LineCount, "wordCount": meta.WordCount, "structure": string(meta.Structure),
	}
	_ = r.store.SaveSnapshot(sessionID, contextID, content, metaMap, createdAt)
}

// GetContext returns a context by id.
func (r *Registry) GetContext(sessionID, contextID string) (*textstore.Context, error) {
	s, err := r.GetOrDefault(sessionID)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.contexts[contextID]
	if !ok {
		return nil, apperrors.Newf(apperrors.ContextNotFound, "context %q not found", contextID)
	}
	return c, nil
}

// SetVariable validates and stores a session-scoped variable.
func (r *Registry) SetVariable(sessionID, name string, value interface{}) error {
	if !validVariableName(name) {
		return apperrors.Newf(apperrors.ValidationInvalidInput, "invalid variable name %q", name)
	}
	s, err := r.GetOrDefault(sessionID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	if _, exists := s.variables[name]; !exists && r.maxVariables > 0 && len(s.variables) >= r.maxVariables {
		s.mu.Unlock()
		return apperrors.New(apperrors.ResourceVariableLimit, "variable count limit reached")
	}
	s.mu.Unlock()
	s.SetVar(name, value)
	return nil
}

// GetVariable reads a session-scoped variable.
func (r *Registry) GetVariable(sessionID, name string) (interface{}, bool, error) {
	s, err := r.GetOrDefault(sessionID)
	if err != nil {
		return nil, false, err
	}
	v, ok := s.GetVar(name)
	return v, ok, nil
}

// StoreDecomposition records a DecompositionRecord and updates the
// (contextId -> record) and session-global "last" pointers.
func (r *Registry) StoreDecomposition(sessionID, contextID string, strategy decompose.Strategy, options map[string]interface{}) (*decompose.Record, error) {
	s, err := r.GetOrDefault(sessionID)
	if err != nil {
		return nil, err
	}
	rec := decompose.NewRecord(contextID, strategy, options)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.decompositions[rec.ID] = rec
	s.lastDecomposeByCtx[contextID] = rec.ID
	s.lastDecomposeID = rec.ID
	s.touch()
	return rec, nil
}

// LookupDecomposition implements the lookup semantics of spec §4.1:
// `use_last_decompose` with an existing context returns that context's
// last record; if the context is missing it returns the session's
// globally most recent record; with an explicit decompose_id the
// recorded context is authoritative and must match the caller's
// contextId unless the caller passed the sentinel `main`.
func (r *Registry) LookupDecomposition(sessionID, contextID, decomposeID string, useLast bool) (*decompose.Record, error) {
	s, err := r.GetOrDefault(sessionID)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	if decomposeID != "" {
		rec, ok := s.decompositions[decomposeID]
		if !ok {
			return nil, apperrors.Newf(apperrors.ContextNotFound, "decomposition %q not found", decomposeID)
		}
		if contextID != "" && contextID != "main" && rec.ContextID != contextID {
			return nil, apperrors.Newf(apperrors.ValidationInvalidInput, "decomposition %q belongs to context %q, not %q", decomposeID, rec.ContextID, contextID)
		}
		return rec, nil
	}

	if useLast {
		if recID, ok := s.lastDecomposeByCtx[contextID]; ok {
			return s.decompositions[recID], nil
		}
		if s.lastDecomposeID != "" {
			return s.decompositions[s.lastDecomposeID], nil
		}
	}
	return nil, apperrors.New(apperrors.ContextNotFound, "no decomposition available")
}

// Clear resets a session's contexts/variables/history/decompositions
// without removing the session itself.
func (r *Registry) Clear(sessionID string) error {
	s, err := r.GetOrDefault(sessionID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	for ctxID := range s.contexts {
		r.invalidateContextCaches(s.ID, ctxID)
	}
	s.contexts = make(map[string]*textstore.Context)
	s.variables = make(map[string]interface{})
	s.decompositions = make(map[string]*decompose.Record)
	s.lastDecomposeByCtx = make(map[string]string)
	s.lastDecomposeID = ""
	s.history = nil
	s.answer = AnswerState{Content: "", Ready: false}
	s.touch()
	s.mu.Unlock()
	return nil
}

// Destroy removes a non-default session entirely.
func (r *Registry) Destroy(sessionID string) error {
	if sessionID == DefaultSessionID {
		return apperrors.New(apperrors.ValidationInvalidInput, "the default session cannot be destroyed")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[sessionID]; !ok {
		return apperrors.Newf(apperrors.SessionNotFound, "session %q not found", sessionID)
	}
	r.destroyLocked(sessionID)
	return nil
}

// Stats is the session-registry portion of rlm_get_session_info /
// rlm_get_metrics.
type Stats struct {
	SessionCount    int
	TotalMemoryBytes int64
	ChunkCacheSize  int
	IndexCacheSize  int
}

func (r *Registry) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var total int64
	for _, s := range r.sessions {
		s.mu.RLock()
		total += s.EstimatedMemory()
		s.mu.RUnlock()
	}
	return Stats{
		SessionCount:     len(r.sessions),
		TotalMemoryBytes: total,
		ChunkCacheSize:   r.chunkCache.Len(),
		IndexCacheSize:   r.indexCache.Len(),
	}
}

// SessionInfo is a single session's lifecycle snapshot, for
// rlm_get_session_info and the paginated rlm_list_sessions.
type SessionInfo struct {
	ID            string
	CreatedAt     time.Time
	LastActivity  time.Time
	ContextCount  int
	VariableCount int
	MemoryBytes   int64
}

func (r *Registry) GetSessionInfo(sessionID string) (SessionInfo, error) {
	s, err := r.GetOrDefault(sessionID)
	if err != nil {
		return SessionInfo{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return SessionInfo{
		ID: s.ID, CreatedAt: s.CreatedAt, LastActivity: s.LastActivity,
		ContextCount: len(s.contexts), VariableCount: len(s.variables),
		MemoryBytes: s.EstimatedMemory(),
	}, nil
}

// ListSessions supports the supplemented rlm_list_sessions tool
// (SPEC_FULL.md §C), mirroring the teacher's handleList pagination
// (limit/offset/sort_by/sort_order).
func (r *Registry) ListSessions(limit, offset int, sortBy, sortOrder string) ([]SessionInfo, int) {
	r.mu.RLock()
	infos := make([]SessionInfo, 0, len(r.sessions))
	for _, s := range r.sessions {
		s.mu.RLock()
		infos = append(infos, SessionInfo{
			ID: s.ID, CreatedAt: s.CreatedAt, LastActivity: s.LastActivity,
			ContextCount: len(s.contexts), VariableCount: len(s.variables),
			MemoryBytes: s.EstimatedMemory(),
		})
		s.mu.RUnlock()
	}
	r.mu.RUnlock()

	sortSessionInfos(infos, sortBy, sortOrder)

	total := len(infos)
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	if offset >= total {
		return nil, total
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return infos[offset:end], total
}

func sortSessionInfos(infos []SessionInfo, sortBy, sortOrder string) {
	less := func(i, j int) bool {
		switch sortBy {
		case "createdAt":
			return infos[i].CreatedAt.Before(infos[j].CreatedAt)
		default:
			return infos[i].LastActivity.Before(infos[j].LastActivity)
		}
	}
	if sortOrder == "desc" {
		inner := less
		less = func(i, j int) bool { return inner(j, i) }
	}
	// Simple insertion sort: session counts are small and this keeps the
	// dependency surface to the standard library for a bounded list.
	for i := 1; i < len(infos); i++ {
		for j := i; j > 0 && less(j, j-1); j-- {
			infos[j], infos[j-1] = infos[j-1], infos[j]
		}
	}
}

// AppendHistory records an execution onto a session's bounded history.
func (r *Registry) AppendHistory(sessionID string, entry HistoryEntry) error {
	s, err := r.GetOrDefault(sessionID)
	if err != nil {
		return err
	}
	s.AppendHistory(entry, r.maxHistoryEntries)
	return nil
}

// Session returns the live *Session for direct read access (e.g. as a
// sandbox.StateAccessor), without copying state.
func (r *Registry) Session(sessionID string) (*Session, error) {
	return r.GetOrDefault(sessionID)
}
