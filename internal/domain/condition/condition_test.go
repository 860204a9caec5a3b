package condition

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/stride/internal/domain/types"
)

type memStore struct {
	mu   sync.Mutex
	data map[string]bool
	puts int
}

func newMemStore() *memStore { return &memStore{data: make(map[string]bool)} }

func (m *memStore) Get(_ context.Context, scope, subject string) (bool, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[scope+"\x00"+subject]
	return v, ok, nil
}

func (m *memStore) PutIfAbsent(_ context.Context, scope, subject string, v bool) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.puts++
	k := scope + "\x00" + subject
	if old, ok := m.data[k]; ok {
		return old, nil
	}
	m.data[k] = v
	return v, nil
}

type failingStore struct{}

func (failingStore) Get(context.Context, string, string) (bool, bool, error) {
	return false, false, errors.New("disk gone")
}

func (failingStore) PutIfAbsent(context.Context, string, string, bool) (bool, error) {
	return false, errors.New("disk gone")
}

func TestAssign(t *testing.T) {
	ctx := context.Background()

	Convey("Given an override, an inversion and an all_intervention policy for P1", t, func() {
		s, err := NewSettings("default", "all_intervention", 0.5,
			map[string]string{"P1": "control"}, []string{"P1"})
		So(err, ShouldBeNil)

		Convey("Then the override wins", func() {
			v, err := Assign(ctx, newMemStore(), s, "alice", "P1")
			So(err, ShouldBeNil)
			So(v, ShouldBeFalse)
		})

		Convey("Then other problems follow the policy", func() {
			v, err := Assign(ctx, newMemStore(), s, "alice", "P2")
			So(err, ShouldBeNil)
			So(v, ShouldBeTrue)
		})
	})

	Convey("Given an all_control policy", t, func() {
		s, err := NewSettings("default", "all_control", 1, nil, []string{"P1"})
		So(err, ShouldBeNil)

		Convey("Then inversion does not apply", func() {
			v, err := Assign(ctx, nil, s, "bob", "P1")
			So(err, ShouldBeNil)
			So(v, ShouldBeFalse)
		})
	})

	Convey("Given a random_student policy", t, func() {
		store := newMemStore()
		s, err := NewSettings("course-1", "random_student", 0.5, nil, nil)
		So(err, ShouldBeNil)

		first, err := Assign(ctx, store, s, "carol", "P1")
		So(err, ShouldBeNil)

		Convey("Then the first answer matches the hash draw", func() {
			So(first, ShouldEqual, Draw("course-1", "carol") < 0.5)
		})

		Convey("Then a later probability change does not move the subject", func() {
			if first {
				s.Probability = 0
			} else {
				s.Probability = 1
			}
			again, err := Assign(ctx, store, s, "carol", "P1")
			So(err, ShouldBeNil)
			So(again, ShouldEqual, first)
		})

		Convey("Then an inverted problem flips the sticky value", func() {
			s.Inverted = map[string]struct{}{"P9": {}}
			flipped, err := Assign(ctx, store, s, "carol", "P9")
			So(err, ShouldBeNil)
			So(flipped, ShouldEqual, !first)
		})

		Convey("Then probability bounds are absolute", func() {
			s.Probability = 1
			v, _ := Assign(ctx, newMemStore(), s, "dave", "P1")
			So(v, ShouldBeTrue)
			s.Probability = 0
			v, _ = Assign(ctx, newMemStore(), s, "dave", "P1")
			So(v, ShouldBeFalse)
		})

		Convey("Then an anonymous subject is not persisted", func() {
			before := store.puts
			_, err := Assign(ctx, store, s, "", "P1")
			So(err, ShouldBeNil)
			So(store.puts, ShouldEqual, before)
		})

		Convey("Then store failures surface", func() {
			_, err := Assign(ctx, failingStore{}, s, "erin", "P1")
			So(err, ShouldNotBeNil)
		})
	})

	Convey("Given concurrent first lookups for one subject", t, func() {
		store := newMemStore()
		s, _ := NewSettings("race", "random_student", 0.5, nil, nil)

		var wg sync.WaitGroup
		results := make([]bool, 32)
		for i := range results {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				// Alternate probabilities so racing callers would disagree
				// if each used its own draw.
				local := s
				local.Probability = float64(i % 2)
				v, err := Assign(ctx, store, local, "frank", "P1")
				if err == nil {
					results[i] = v
				}
			}(i)
		}
		wg.Wait()

		Convey("Then every caller sees the single persisted winner", func() {
			winner, ok, _ := store.Get(ctx, "race", "frank")
			So(ok, ShouldBeTrue)
			for _, v := range results {
				So(v, ShouldEqual, winner)
			}
		})
	})

	Convey("Given an unknown policy", t, func() {
		_, err := NewSettings("default", "coin_flip", 0.5, nil, nil)

		Convey("Then settings are rejected", func() {
			So(errors.Is(err, ErrConfiguration), ShouldBeTrue)
		})

		Convey("Then assigning with it directly fails", func() {
			_, err := Assign(ctx, nil, Settings{Policy: "coin_flip"}, "a", "P1")
			So(errors.Is(err, ErrConfiguration), ShouldBeTrue)
		})

		Convey("Then an Assigner cannot be built", func() {
			_, err := NewAssigner(Settings{Policy: "coin_flip"}, nil)
			So(errors.Is(err, ErrConfiguration), ShouldBeTrue)
		})
	})

	Convey("Given a bad override value", t, func() {
		_, err := NewSettings("default", "all_control", 0.5, map[string]string{"P1": "maybe"}, nil)
		So(errors.Is(err, ErrConfiguration), ShouldBeTrue)
	})
}

func TestAssigner(t *testing.T) {
	Convey("Given an assigner over a store", t, func() {
		s, _ := NewSettings("default", "random_student", 0.5,
			map[string]string{"P2": "intervention"}, nil)
		a, err := NewAssigner(s, newMemStore())
		So(err, ShouldBeNil)

		Convey("Then repeated calls are idempotent", func() {
			for i := 0; i < 10; i++ {
				subject := fmt.Sprintf("s%d", i)
				x, _ := a.Assign(context.Background(), subject, "P1")
				y, _ := a.Assign(context.Background(), subject, "P1")
				So(x, ShouldEqual, y)
			}
		})

		Convey("Then overrides are exposed in settings", func() {
			So(a.Settings().Overrides["P2"], ShouldEqual, types.Intervention)
		})
	})
}

func TestDraw(t *testing.T) {
	Convey("Given many subjects", t, func() {
		below := 0
		for i := 0; i < 2000; i++ {
			d := Draw("scope", fmt.Sprintf("subject-%d", i))
			So(d, ShouldBeBetweenOrEqual, 0, 1)
			if d < 0.5 {
				below++
			}
		}

		Convey("Then draws are roughly uniform", func() {
			So(below, ShouldBeBetween, 850, 1150)
		})

		Convey("Then draws are stable", func() {
			So(Draw("scope", "x"), ShouldEqual, Draw("scope", "x"))
		})
	})
}
