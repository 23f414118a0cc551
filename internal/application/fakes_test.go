package application

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/oksasatya/go-weather-digest/internal/domain/entity"
	"github.com/oksasatya/go-weather-digest/internal/domain/provider"
	repo "github.com/oksasatya/go-weather-digest/internal/domain/repository"
)

// memStore backs the user, city, and relation fakes with shared maps so
// the services see a consistent view, as they would against Postgres.
type memStore struct {
	mu       sync.Mutex
	users    map[int64]*entity.User
	cities   map[int64]*entity.City
	byName   map[string]int64
	favs     map[int64]map[int64]bool
	subs     map[int64]map[int64]bool
	nextUser int64
	nextCity int64

	confirmCalls int
}

func newMemStore() *memStore {
	return &memStore{
		users:  map[int64]*entity.User{},
		cities: map[int64]*entity.City{},
		byName: map[string]int64{},
		favs:   map[int64]map[int64]bool{},
		subs:   map[int64]map[int64]bool{},
	}
}

func (m *memStore) addUser(username, email string, confirmed bool) *entity.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextUser++
	u := &entity.User{ID: m.nextUser, Username: username, Email: email, EmailConfirmed: confirmed}
	if confirmed {
		at := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
		u.EmailConfirmedOn = &at
	}
	m.users[u.ID] = u
	return u
}

func (m *memStore) pairs(set map[int64]map[int64]bool, userID int64) []int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]int64, 0, len(set[userID]))
	for id := range set[userID] {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ---- users ----

type memUsers struct{ *memStore }

func (r memUsers) Create(_ context.Context, u *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Username == u.Username {
			return &repo.DuplicateUserError{Field: repo.DuplicateUsername}
		}
		if existing.Email == u.Email {
			return &repo.DuplicateUserError{Field: repo.DuplicateEmail}
		}
	}
	r.nextUser++
	u.ID = r.nextUser
	cp := *u
	r.users[u.ID] = &cp
	return nil
}

func (r memUsers) find(match func(*entity.User) bool) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if match(u) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repo.ErrNotFound
}

func (r memUsers) GetByID(_ context.Context, id int64) (*entity.User, error) {
	return r.find(func(u *entity.User) bool { return u.ID == id })
}

func (r memUsers) GetByUsername(_ context.Context, username string) (*entity.User, error) {
	return r.find(func(u *entity.User) bool { return u.Username == username })
}

func (r memUsers) GetByEmail(_ context.Context, email string) (*entity.User, error) {
	return r.find(func(u *entity.User) bool { return u.Email == email })
}

func (r memUsers) UpdatePassword(_ context.Context, id int64, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return repo.ErrNotFound
	}
	u.PasswordHash = hash
	return nil
}

func (r memUsers) MarkEmailConfirmed(_ context.Context, id int64, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.confirmCalls++
	u, ok := r.users[id]
	if !ok || u.EmailConfirmed {
		return false, nil
	}
	u.EmailConfirmed = true
	u.EmailConfirmedOn = &at
	return true, nil
}

// ---- cities ----

type memCities struct{ *memStore }

func (r memCities) GetOrCreate(_ context.Context, name string) (*entity.City, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if id, ok := r.byName[name]; ok {
		cp := *r.cities[id]
		return &cp, false, nil
	}
	r.nextCity++
	c := &entity.City{ID: r.nextCity, Name: name}
	r.cities[c.ID] = c
	r.byName[name] = c.ID
	cp := *c
	return &cp, true, nil
}

func (r memCities) GetByName(_ context.Context, name string) (*entity.City, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byName[name]
	if !ok {
		return nil, repo.ErrNotFound
	}
	cp := *r.cities[id]
	return &cp, nil
}

func (r memCities) SearchByPrefix(_ context.Context, prefix string, limit int) ([]entity.City, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []entity.City
	for _, c := range r.cities {
		if strings.HasPrefix(strings.ToLower(c.Name), strings.ToLower(prefix)) {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ---- relations ----

type memRelations struct{ *memStore }

func (r memRelations) add(set map[int64]map[int64]bool, userID, cityID int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.cities[cityID]; !ok {
		return false, repo.ErrUnknownCity
	}
	if set[userID] == nil {
		set[userID] = map[int64]bool{}
	}
	if set[userID][cityID] {
		return false, nil
	}
	set[userID][cityID] = true
	return true, nil
}

func (r memRelations) AddFavorite(_ context.Context, userID, cityID int64) (bool, error) {
	return r.add(r.favs, userID, cityID)
}

func (r memRelations) AddSubscription(_ context.Context, userID, cityID int64) (bool, error) {
	return r.add(r.subs, userID, cityID)
}

func (r memRelations) list(set map[int64]map[int64]bool, userID int64) []entity.City {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]entity.City, 0, len(set[userID]))
	for id := range set[userID] {
		out = append(out, *r.cities[id])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (r memRelations) ListFavorites(_ context.Context, userID int64) ([]entity.City, error) {
	return r.list(r.favs, userID), nil
}

func (r memRelations) ListSubscriptions(_ context.Context, userID int64) ([]entity.City, error) {
	return r.list(r.subs, userID), nil
}

func (r memRelations) ReplaceSettings(_ context.Context, userID int64, favoriteIDs, subscriptionIDs []int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ids := range [][]int64{favoriteIDs, subscriptionIDs} {
		for _, id := range ids {
			if _, ok := r.cities[id]; !ok {
				return repo.ErrUnknownCity
			}
		}
	}
	r.favs[userID] = toSet(favoriteIDs)
	r.subs[userID] = toSet(subscriptionIDs)
	return nil
}

func toSet(ids []int64) map[int64]bool {
	s := make(map[int64]bool, len(ids))
	for _, id := range ids {
		s[id] = true
	}
	return s
}

func (r memRelations) ListDigestRecipients(_ context.Context) ([]entity.DigestRecipient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []entity.DigestRecipient
	for userID, set := range r.subs {
		u := r.users[userID]
		if u == nil || !u.EmailConfirmed || len(set) == 0 {
			continue
		}
		rec := entity.DigestRecipient{UserID: u.ID, Username: u.Username, Email: u.Email}
		for id := range set {
			rec.Cities = append(rec.Cities, r.cities[id].Name)
		}
		sort.Strings(rec.Cities)
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

// failingRelations fails the recipient query.
type failingRelations struct{ memRelations }

func (failingRelations) ListDigestRecipients(context.Context) ([]entity.DigestRecipient, error) {
	return nil, errors.New("connection refused")
}

// ---- weather ----

type fakeWeather struct {
	mu      sync.Mutex
	temps   map[string]float64
	missing map[string]error
	calls   []string
}

func (f *fakeWeather) Current(_ context.Context, city string) (*entity.Weather, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, city)
	if err, ok := f.missing[city]; ok {
		return nil, err
	}
	t, ok := f.temps[city]
	if !ok {
		return nil, provider.ErrLocationNotFound
	}
	return &entity.Weather{City: city, Temperature: t, Description: "clear sky", Icon: "01d"}, nil
}

func (f *fakeWeather) Forecast(_ context.Context, city string) ([]entity.DailyMax, error) {
	if _, ok := f.temps[city]; !ok {
		return nil, provider.ErrLocationNotFound
	}
	return []entity.DailyMax{{Date: "2026-01-10", Temperature: f.temps[city]}}, nil
}

// ---- mail ----

type sentMail struct {
	To, Subject, Text, HTML string
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []sentMail
	fail map[string]error
}

func (m *recordingMailer) Send(_ context.Context, to, subject, text, html string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMail{To: to, Subject: subject, Text: text, HTML: html})
	if err, ok := m.fail[to]; ok {
		return err
	}
	return nil
}

// ---- search index ----

type fakeIndex struct {
	indexed []entity.City
	hits    []entity.City
	err     error
}

func (f *fakeIndex) IndexCity(_ context.Context, city entity.City) error {
	f.indexed = append(f.indexed, city)
	return nil
}

func (f *fakeIndex) Suggest(context.Context, string, int) ([]entity.City, error) {
	return f.hits, f.err
}

// ---- archive ----

type fakeArchive struct {
	puts map[int64]string
}

func (a *fakeArchive) Put(_ context.Context, userID int64, _ time.Time, html string) (string, error) {
	if a.puts == nil {
		a.puts = map[int64]string{}
	}
	a.puts[userID] = html
	return "gs://bucket/x", nil
}
