package tribes

import "fmt"

// Validate checks whether tribe t may submit req against gs. It returns nil
// iff the action is legal. Errors are, in order of precedence, a *TurnError,
// a *StructuralError, or a *RuleViolation. Validate has no side effects.
func Validate(gs *GameState, t Tribe, req ActionRequest) error {
	if err := checkTurn(gs, t); err != nil {
		return err
	}
	a, err := req.Parse()
	if err != nil {
		return err
	}
	return validateAction(gs, t, a)
}

// ValidateAction is Validate for an already-parsed action.
func ValidateAction(gs *GameState, t Tribe, a Action) error {
	if err := checkTurn(gs, t); err != nil {
		return err
	}
	return validateAction(gs, t, a)
}

// Check adapts Validate to an (is valid, reason) pair; reason is empty iff valid.
func Check(gs *GameState, t Tribe, req ActionRequest) (bool, string) {
	if err := Validate(gs, t, req); err != nil {
		return false, err.Error()
	}
	return true, ""
}

func checkTurn(gs *GameState, t Tribe) error {
	if gs.Status == StatusFinished {
		return &TurnError{Tribe: t, Message: "game is finished"}
	}
	if gs.Status != StatusInProgress {
		return &TurnError{Tribe: t, Message: fmt.Sprintf("game is not in progress (status: %s)", gs.Status)}
	}
	if gs.CurrentTribe != t {
		return &TurnError{Tribe: t, Message: fmt.Sprintf("Not %s's turn (current: %s)", t, gs.CurrentTribe)}
	}
	if !gs.TribeAlive(t) {
		return &TurnError{Tribe: t, Message: fmt.Sprintf("%s has been eliminated", t)}
	}
	return nil
}

func validateAction(gs *GameState, t Tribe, a Action) error {
	switch a := a.(type) {
	case MoveAction:
		u, err := ownUnit(gs, t, a.UnitID, ActionMove, "move")
		if err != nil {
			return err
		}
		return CanMove(gs, u, a.Target)
	case AttackAction:
		u, err := ownUnit(gs, t, a.UnitID, ActionAttack, "attack with")
		if err != nil {
			return err
		}
		return CanAttack(gs, u, a.TargetID)
	case BuildAction:
		return CanBuild(gs, t, a.Building, a.Position)
	case TrainAction:
		b := gs.BuildingByID(a.BuildingID)
		if b == nil {
			return violation(ActionTrain, "Building %d not found", a.BuildingID)
		}
		if b.Tribe != t {
			return violation(ActionTrain, "Cannot train at another tribe's building")
		}
		return CanTrainUnit(gs, t, a.UnitType, a.BuildingID)
	case HarvestAction:
		u, err := ownUnit(gs, t, a.UnitID, ActionHarvest, "harvest with")
		if err != nil {
			return err
		}
		return CanHarvest(gs, u, a.MineID)
	case SettleAction:
		u, err := ownUnit(gs, t, a.UnitID, ActionSettle, "settle with")
		if err != nil {
			return err
		}
		return CanSettle(gs, u, a.Target)
	default:
		return &StructuralError{Message: fmt.Sprintf("unknown action type: %T", a)}
	}
}

func ownUnit(gs *GameState, t Tribe, id int, kind ActionType, verb string) (*Unit, error) {
	u := gs.UnitByID(id)
	if u == nil {
		return nil, violation(kind, "Unit %d not found", id)
	}
	if u.Tribe != t {
		return nil, violation(kind, "Cannot %s another tribe's unit", verb)
	}
	return u, nil
}
