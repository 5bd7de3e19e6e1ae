package tribes

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"
)

func TestDiffJSONShape(t *testing.T) {
	d := Diff{
		Action: moveReq(1, C(2, 0)),
		Changes: []Change{
			UnitMoved{UnitID: 1, From: C(1, 0), To: C(2, 0)},
			TurnAdvanced{Turn: 1, CurrentTribe: Blue},
		},
	}
	data, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"action":{"action":"MOVE","unit_id":1,"target":[2,0]},"changes":[` +
		`{"type":"unit_moved","unit_id":1,"from":[1,0],"to":[2,0]},` +
		`{"type":"turn_advanced","turn":1,"current_tribe":"BLUE"}]}`
	if string(data) != want {
		t.Errorf("got  %s\nwant %s", data, want)
	}
}

func TestDiffDecodesAppliedChanges(t *testing.T) {
	gs := flatGame(t)
	gs.Units = append(gs.Units,
		Unit{ID: 10, Tribe: Red, Type: Warrior, Position: C(6, 2), CanAct: true},
		Unit{ID: 11, Tribe: Blue, Type: Worker, Position: C(7, 2)},
	)
	m := NewManager(gs, &SequenceDice{Rolls: []int{5, 2}})
	diff, err := m.Apply(Red, AttackAction{UnitID: 10, TargetID: 11}.Request())
	if err != nil {
		t.Fatalf("attack: %v", err)
	}

	data, err := json.Marshal(diff)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded Diff
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !reflect.DeepEqual(*diff, decoded) {
		t.Errorf("decoded diff differs:\n%+v\n%+v", *diff, decoded)
	}
}

func TestDiffRejectsUnknownChange(t *testing.T) {
	var d Diff
	err := json.Unmarshal([]byte(`{"action":{"action":"MOVE"},"changes":[{"type":"earthquake"}]}`), &d)
	if err == nil || !strings.Contains(err.Error(), "earthquake") {
		t.Errorf("expected unknown change error, got %v", err)
	}
}
