package resolver

import (
	"sort"
	"sync"
	"sync/atomic"

	"github.com/USA-RedDragon/campus-nav/internal/gazetteer"
	"github.com/USA-RedDragon/campus-nav/internal/geo"
	"github.com/puzpuzpuz/xsync/v3"
)

const (
	// DefaultThreshold excludes candidates whose score is above 0.4.
	DefaultThreshold = 0.4
	// DefaultDistance is how many runes into a name a match may start before it scores a full miss.
	DefaultDistance = 100
	DefaultLimit    = 8
)

type Options struct {
	Threshold float64
	Distance  int
	Limit     int
}

func (o Options) withDefaults() Options {
	if o.Threshold <= 0 {
		o.Threshold = DefaultThreshold
	}
	if o.Distance <= 0 {
		o.Distance = DefaultDistance
	}
	if o.Limit <= 0 {
		o.Limit = DefaultLimit
	}
	return o
}

// Entry is one searchable location. Its coordinate may be updated in place
// without touching the index.
type Entry struct {
	name       string
	normalized []rune
	coordinate atomic.Pointer[geo.Coordinate]
}

func NewEntry(loc gazetteer.Location) *Entry {
	e := &Entry{name: loc.Name, normalized: normalize(loc.Name)}
	e.SetCoordinate(loc.Coordinate)
	return e
}

func (e *Entry) Name() string {
	return e.name
}

func (e *Entry) Coordinate() (geo.Coordinate, bool) {
	c := e.coordinate.Load()
	if c == nil {
		return geo.Coordinate{}, false
	}
	return *c, true
}

func (e *Entry) SetCoordinate(c geo.Coordinate) {
	e.coordinate.Store(&c)
}

func (e *Entry) Location() gazetteer.Location {
	c, _ := e.Coordinate()
	return gazetteer.Location{Name: e.name, Coordinate: c}
}

type Result struct {
	Entry *Entry
	Score float64
}

type Resolver struct {
	opts Options

	mu      sync.RWMutex
	entries []*Entry
	byName  *xsync.MapOf[string, *Entry]
}

// New indexes locations in gazetteer order.
func New(locations []gazetteer.Location, opts Options) *Resolver {
	r := &Resolver{
		opts:    opts.withDefaults(),
		entries: make([]*Entry, 0, len(locations)+1),
		byName:  xsync.NewMapOf[string, *Entry](),
	}
	for _, loc := range locations {
		r.add(NewEntry(loc))
	}
	return r
}

func (r *Resolver) add(e *Entry) {
	r.entries = append(r.entries, e)
	// Duplicate names keep resolving to the first entry.
	r.byName.LoadOrStore(string(e.normalized), e)
}

// Insert appends a single entry to the index and returns it.
func (r *Resolver) Insert(loc gazetteer.Location) *Entry {
	e := NewEntry(loc)
	r.Add(e)
	return e
}

// Add appends an existing entry, which may also be indexed by other resolvers.
func (r *Resolver) Add(e *Entry) {
	r.mu.Lock()
	r.add(e)
	r.mu.Unlock()
}

// Lookup returns the first entry whose name equals name, ignoring case and diacritics.
func (r *Resolver) Lookup(name string) (*Entry, bool) {
	return r.byName.Load(string(normalize(name)))
}

func (r *Resolver) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

func (r *Resolver) Entries() []*Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Rank scores every entry against query and returns those within the
// threshold, best first. Equal scores keep index order. A non-positive
// limit selects the configured default.
func (r *Resolver) Rank(query string, limit int) []Result {
	pattern := normalize(query)
	if len(pattern) == 0 {
		return nil
	}
	if limit <= 0 {
		limit = r.opts.Limit
	}

	entries := r.Entries()
	results := make([]Result, 0, len(entries))
	for _, e := range entries {
		s := score(pattern, e.normalized, r.opts.Distance)
		if s > r.opts.Threshold {
			continue
		}
		results = append(results, Result{Entry: e, Score: s})
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score < results[j].Score
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results
}

func (r *Resolver) Search(query string, limit int) []gazetteer.Location {
	ranked := r.Rank(query, limit)
	out := make([]gazetteer.Location, len(ranked))
	for i, res := range ranked {
		out[i] = res.Entry.Location()
	}
	return out
}
