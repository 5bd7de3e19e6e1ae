package tribes

import (
	"encoding/json"
	"fmt"
)

// ActionType is the declared kind of an action.
type ActionType string

const (
	ActionMove    ActionType = "MOVE"
	ActionAttack  ActionType = "ATTACK"
	ActionBuild   ActionType = "BUILD"
	ActionTrain   ActionType = "TRAIN"
	ActionHarvest ActionType = "HARVEST"
	ActionSettle  ActionType = "SETTLE"
)

// ActionRequest is the loose wire form of an action as produced by a
// strategy. Only the fields relevant to Action are expected to be set.
type ActionRequest struct {
	Action     ActionType    `json:"action"`
	UnitID     *int          `json:"unit_id,omitempty"`
	Target     *Coord        `json:"target,omitempty"`
	TargetID   *int          `json:"target_id,omitempty"`
	Building   *BuildingType `json:"building,omitempty"`
	UnitType   *UnitType     `json:"unit_type,omitempty"`
	BuildingID *int          `json:"building_id,omitempty"`
	MineID     *int          `json:"mine_id,omitempty"`
	Position   *Coord        `json:"position,omitempty"`
}

// DecodeAction parses a serialized action request. Any parse failure is a
// StructuralError.
func DecodeAction(data []byte) (ActionRequest, error) {
	var req ActionRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return ActionRequest{}, &StructuralError{Message: "unparseable action: " + err.Error()}
	}
	if req.Action == "" {
		return ActionRequest{}, &StructuralError{Message: "missing action kind"}
	}
	return req, nil
}

// Action is the closed set of well-formed actions. The concrete types are
// MoveAction, AttackAction, BuildAction, TrainAction, HarvestAction and
// SettleAction.
type Action interface {
	Kind() ActionType
	Request() ActionRequest
	isAction()
}

// MoveAction relocates a unit.
type MoveAction struct {
	UnitID int
	Target Coord
}

// AttackAction engages an enemy unit.
type AttackAction struct {
	UnitID   int
	TargetID int
}

// BuildAction constructs a building on owned territory.
type BuildAction struct {
	Building BuildingType
	Position Coord
}

// TrainAction produces a unit at a building.
type TrainAction struct {
	UnitType   UnitType
	BuildingID int
}

// HarvestAction assigns a worker to the mine it stands on.
type HarvestAction struct {
	UnitID int
	MineID int
}

// SettleAction consumes a settler to claim an adjacent tile.
type SettleAction struct {
	UnitID int
	Target Coord
}

func (MoveAction) Kind() ActionType    { return ActionMove }
func (AttackAction) Kind() ActionType  { return ActionAttack }
func (BuildAction) Kind() ActionType   { return ActionBuild }
func (TrainAction) Kind() ActionType   { return ActionTrain }
func (HarvestAction) Kind() ActionType { return ActionHarvest }
func (SettleAction) Kind() ActionType  { return ActionSettle }

func (MoveAction) isAction()    {}
func (AttackAction) isAction()  {}
func (BuildAction) isAction()   {}
func (TrainAction) isAction()   {}
func (HarvestAction) isAction() {}
func (SettleAction) isAction()  {}

func (a MoveAction) Request() ActionRequest {
	return ActionRequest{Action: ActionMove, UnitID: intPtr(a.UnitID), Target: coordPtr(a.Target)}
}

func (a AttackAction) Request() ActionRequest {
	return ActionRequest{Action: ActionAttack, UnitID: intPtr(a.UnitID), TargetID: intPtr(a.TargetID)}
}

func (a BuildAction) Request() ActionRequest {
	b := a.Building
	return ActionRequest{Action: ActionBuild, Building: &b, Position: coordPtr(a.Position)}
}

func (a TrainAction) Request() ActionRequest {
	u := a.UnitType
	return ActionRequest{Action: ActionTrain, UnitType: &u, BuildingID: intPtr(a.BuildingID)}
}

func (a HarvestAction) Request() ActionRequest {
	return ActionRequest{Action: ActionHarvest, UnitID: intPtr(a.UnitID), MineID: intPtr(a.MineID)}
}

func (a SettleAction) Request() ActionRequest {
	return ActionRequest{Action: ActionSettle, UnitID: intPtr(a.UnitID), Target: coordPtr(a.Target)}
}

// Parse converts a request into its typed variant, checking that every
// field required by the declared kind is present.
func (r ActionRequest) Parse() (Action, error) {
	switch r.Action {
	case ActionMove:
		if r.UnitID == nil {
			return nil, missing(r.Action, "unit_id")
		}
		if r.Target == nil {
			return nil, missing(r.Action, "target")
		}
		return MoveAction{UnitID: *r.UnitID, Target: *r.Target}, nil
	case ActionAttack:
		if r.UnitID == nil {
			return nil, missing(r.Action, "unit_id")
		}
		if r.TargetID == nil {
			return nil, missing(r.Action, "target_id")
		}
		return AttackAction{UnitID: *r.UnitID, TargetID: *r.TargetID}, nil
	case ActionBuild:
		if r.Building == nil {
			return nil, missing(r.Action, "building type")
		}
		if !r.Building.Valid() {
			return nil, &StructuralError{Action: r.Action, Message: fmt.Sprintf("unknown building type %q", *r.Building)}
		}
		if r.Position == nil {
			return nil, missing(r.Action, "position")
		}
		return BuildAction{Building: *r.Building, Position: *r.Position}, nil
	case ActionTrain:
		if r.UnitType == nil {
			return nil, missing(r.Action, "unit_type")
		}
		if !r.UnitType.Valid() {
			return nil, &StructuralError{Action: r.Action, Message: fmt.Sprintf("unknown unit type %q", *r.UnitType)}
		}
		if r.BuildingID == nil {
			return nil, missing(r.Action, "building_id")
		}
		return TrainAction{UnitType: *r.UnitType, BuildingID: *r.BuildingID}, nil
	case ActionHarvest:
		if r.UnitID == nil {
			return nil, missing(r.Action, "unit_id")
		}
		if r.MineID == nil {
			return nil, missing(r.Action, "mine_id")
		}
		return HarvestAction{UnitID: *r.UnitID, MineID: *r.MineID}, nil
	case ActionSettle:
		if r.UnitID == nil {
			return nil, missing(r.Action, "unit_id")
		}
		if r.Target == nil {
			return nil, missing(r.Action, "target")
		}
		return SettleAction{UnitID: *r.UnitID, Target: *r.Target}, nil
	default:
		return nil, &StructuralError{Message: fmt.Sprintf("unknown action type: %q", r.Action)}
	}
}

func coordPtr(c Coord) *Coord {
	return &c
}
