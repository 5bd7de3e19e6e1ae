package tribes

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ChangeType tags a change event in a Diff.
type ChangeType string

const (
	ChangeUnitMoved         ChangeType = "unit_moved"
	ChangeUnitKilled        ChangeType = "unit_killed"
	ChangeCombat            ChangeType = "combat"
	ChangeBuildingCreated   ChangeType = "building_created"
	ChangeUnitTrained       ChangeType = "unit_trained"
	ChangeHarvestStarted    ChangeType = "harvest_started"
	ChangeTerritoryExpanded ChangeType = "territory_expanded"
	ChangeUnitConsumed      ChangeType = "unit_consumed"
	ChangeIncomeCollected   ChangeType = "income_collected"
	ChangeTribeEliminated   ChangeType = "tribe_eliminated"
	ChangeTurnAdvanced      ChangeType = "turn_advanced"
	ChangeGameOver          ChangeType = "game_over"
)

// Change is one typed event produced by applying an action.
type Change interface {
	Type() ChangeType
}

// UnitMoved records a unit stepping to an adjacent tile.
type UnitMoved struct {
	UnitID int   `json:"unit_id"`
	From   Coord `json:"from"`
	To     Coord `json:"to"`
}

// UnitKilled records a unit removed in combat.
type UnitKilled struct {
	UnitID   int `json:"unit_id"`
	KillerID int `json:"killer_id"`
}

// Combat records both rolls of an attack and who won.
type Combat struct {
	AttackerID   int  `json:"attacker_id"`
	DefenderID   int  `json:"defender_id"`
	AttackerRoll int  `json:"attacker_roll"`
	DefenderRoll int  `json:"defender_roll"`
	AttackerWins bool `json:"attacker_wins"`
}

// BuildingCreated records a new building on owned territory.
type BuildingCreated struct {
	BuildingID   int          `json:"building_id"`
	BuildingType BuildingType `json:"building_type"`
	Position     Coord        `json:"position"`
	Tribe        Tribe        `json:"tribe"`
}

// UnitTrained records a unit spawned at a building.
type UnitTrained struct {
	UnitID   int      `json:"unit_id"`
	UnitType UnitType `json:"unit_type"`
	Position Coord    `json:"position"`
	Tribe    Tribe    `json:"tribe"`
}

// HarvestStarted records a worker attaching to a mine.
type HarvestStarted struct {
	UnitID int `json:"unit_id"`
	MineID int `json:"mine_id"`
}

// TerritoryExpanded records a tile claimed by a settler.
type TerritoryExpanded struct {
	Position Coord `json:"position"`
	Tribe    Tribe `json:"tribe"`
}

// UnitConsumed records a settler used up by settling.
type UnitConsumed struct {
	UnitID int `json:"unit_id"`
}

// IncomeCollected records end-of-turn gold from worked mines.
type IncomeCollected struct {
	Tribe  Tribe `json:"tribe"`
	Amount int   `json:"amount"`
}

// TribeEliminated records a tribe leaving the game.
type TribeEliminated struct {
	Tribe Tribe `json:"tribe"`
}

// TurnAdvanced records the next tribe to move and the round number.
type TurnAdvanced struct {
	Turn         int   `json:"turn"`
	CurrentTribe Tribe `json:"current_tribe"`
}

// GameOver records the last tribe standing.
type GameOver struct {
	Winner Tribe `json:"winner"`
}

func (UnitMoved) Type() ChangeType         { return ChangeUnitMoved }
func (UnitKilled) Type() ChangeType        { return ChangeUnitKilled }
func (Combat) Type() ChangeType            { return ChangeCombat }
func (BuildingCreated) Type() ChangeType   { return ChangeBuildingCreated }
func (UnitTrained) Type() ChangeType       { return ChangeUnitTrained }
func (HarvestStarted) Type() ChangeType    { return ChangeHarvestStarted }
func (TerritoryExpanded) Type() ChangeType { return ChangeTerritoryExpanded }
func (UnitConsumed) Type() ChangeType      { return ChangeUnitConsumed }
func (IncomeCollected) Type() ChangeType   { return ChangeIncomeCollected }
func (TribeEliminated) Type() ChangeType   { return ChangeTribeEliminated }
func (TurnAdvanced) Type() ChangeType      { return ChangeTurnAdvanced }
func (GameOver) Type() ChangeType          { return ChangeGameOver }

// Diff is the ordered list of changes produced by one Apply call.
type Diff struct {
	Action  ActionRequest
	Changes []Change
}

func (d *Diff) add(c Change) {
	d.Changes = append(d.Changes, c)
}

// Has reports whether the diff contains a change of type ct.
func (d *Diff) Has(ct ChangeType) bool {
	for _, c := range d.Changes {
		if c.Type() == ct {
			return true
		}
	}
	return false
}

// OfType returns the changes of type ct in order.
func (d *Diff) OfType(ct ChangeType) []Change {
	var out []Change
	for _, c := range d.Changes {
		if c.Type() == ct {
			out = append(out, c)
		}
	}
	return out
}

type diffJSON struct {
	Action  ActionRequest     `json:"action"`
	Changes []json.RawMessage `json:"changes"`
}

// MarshalJSON writes {"action": ..., "changes": [{"type": ..., ...}, ...]}.
func (d Diff) MarshalJSON() ([]byte, error) {
	out := diffJSON{Action: d.Action, Changes: make([]json.RawMessage, 0, len(d.Changes))}
	for _, c := range d.Changes {
		raw, err := marshalChange(c)
		if err != nil {
			return nil, err
		}
		out.Changes = append(out.Changes, raw)
	}
	return json.Marshal(out)
}

func (d *Diff) UnmarshalJSON(data []byte) error {
	var in diffJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	d.Action = in.Action
	d.Changes = make([]Change, 0, len(in.Changes))
	for _, raw := range in.Changes {
		c, err := unmarshalChange(raw)
		if err != nil {
			return err
		}
		d.Changes = append(d.Changes, c)
	}
	return nil
}

// marshalChange splices the type tag in front of the event's own fields.
func marshalChange(c Change) ([]byte, error) {
	body, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("marshal %s change: %w", c.Type(), err)
	}
	tag, _ := json.Marshal(string(c.Type()))
	var buf bytes.Buffer
	buf.WriteString(`{"type":`)
	buf.Write(tag)
	if inner := bytes.TrimSpace(body[1 : len(body)-1]); len(inner) > 0 {
		buf.WriteByte(',')
		buf.Write(inner)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func unmarshalChange(raw json.RawMessage) (Change, error) {
	var head struct {
		Type ChangeType `json:"type"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, err
	}
	var c Change
	switch head.Type {
	case ChangeUnitMoved:
		c = &UnitMoved{}
	case ChangeUnitKilled:
		c = &UnitKilled{}
	case ChangeCombat:
		c = &Combat{}
	case ChangeBuildingCreated:
		c = &BuildingCreated{}
	case ChangeUnitTrained:
		c = &UnitTrained{}
	case ChangeHarvestStarted:
		c = &HarvestStarted{}
	case ChangeTerritoryExpanded:
		c = &TerritoryExpanded{}
	case ChangeUnitConsumed:
		c = &UnitConsumed{}
	case ChangeIncomeCollected:
		c = &IncomeCollected{}
	case ChangeTribeEliminated:
		c = &TribeEliminated{}
	case ChangeTurnAdvanced:
		c = &TurnAdvanced{}
	case ChangeGameOver:
		c = &GameOver{}
	default:
		return nil, fmt.Errorf("unknown change type %q", head.Type)
	}
	if err := json.Unmarshal(raw, c); err != nil {
		return nil, fmt.Errorf("decode %s change: %w", head.Type, err)
	}
	return deref(c), nil
}

// deref turns the decode target back into a value so decoded diffs compare
// equal to the ones Apply produced.
func deref(c Change) Change {
	switch v := c.(type) {
	case *UnitMoved:
		return *v
	case *UnitKilled:
		return *v
	case *Combat:
		return *v
	case *BuildingCreated:
		return *v
	case *UnitTrained:
		return *v
	case *HarvestStarted:
		return *v
	case *TerritoryExpanded:
		return *v
	case *UnitConsumed:
		return *v
	case *IncomeCollected:
		return *v
	case *TribeEliminated:
		return *v
	case *TurnAdvanced:
		return *v
	case *GameOver:
		return *v
	}
	return c
}
