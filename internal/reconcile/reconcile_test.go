package reconcile

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/mcoot/playfield/internal/model"
)

func players() []model.Player {
	return []model.Player{
		{ID: "other", X: 10, Y: 20, Color: "hsl(1, 70%, 50%)", Name: "Other"},
		{ID: "me", X: 100, Y: 100, Color: "hsl(2, 70%, 50%)", Name: "Me"},
	}
}

func TestFrame(t *testing.T) {
	local := model.Position{X: 140, Y: 100}

	tests := []struct {
		name string
		self Self
		want []Sprite
	}{
		{
			name: "joined self renders from local position",
			self: Self{ID: "me", Position: local, Joined: true},
			want: []Sprite{
				{Player: players()[0], Source: SourceRoster},
				{Player: model.Player{ID: "me", X: 140, Y: 100, Color: "hsl(2, 70%, 50%)", Name: "Me"}, IsSelf: true, Source: SourceLocal},
			},
		},
		{
			name: "before join the echoed self row renders from the roster",
			self: Self{ID: "me", Position: local, Joined: false},
			want: []Sprite{
				{Player: players()[0], Source: SourceRoster},
				{Player: players()[1], Source: SourceRoster},
			},
		},
		{
			name: "self not yet echoed is simply absent",
			self: Self{ID: "someone-else", Position: local, Joined: true},
			want: []Sprite{
				{Player: players()[0], Source: SourceRoster},
				{Player: players()[1], Source: SourceRoster},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Frame(players(), tt.self)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Frame() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFrame_Empty(t *testing.T) {
	if got := Frame(nil, Self{ID: "me", Joined: true}); len(got) != 0 {
		t.Errorf("Frame(nil) = %v, want empty", got)
	}
}

type fakeRoster []model.Player

func (f fakeRoster) Snapshot() []model.Player { return f }

type fakeMotion model.Position

func (f fakeMotion) Position() model.Position { return model.Position(f) }

type fakeSelf struct {
	id     model.PlayerID
	joined bool
}

func (f fakeSelf) SelfID() (model.PlayerID, bool) { return f.id, f.joined }

func TestReconciler_Frame(t *testing.T) {
	r := New(fakeRoster(players()), fakeMotion{X: 1, Y: 2}, fakeSelf{id: "me", joined: true})

	got := r.Frame()
	if len(got) != 2 {
		t.Fatalf("Frame() returned %d sprites, want 2", len(got))
	}
	if !got[1].IsSelf || got[1].X != 1 || got[1].Y != 2 {
		t.Errorf("self sprite = %+v, want local position (1,2)", got[1])
	}
	if got[0].IsSelf || got[0].Source != SourceRoster {
		t.Errorf("other sprite = %+v, want roster-sourced", got[0])
	}
}
