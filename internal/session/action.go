package session

import (
	"golang.org/x/xerrors"
)

var ErrUnknownAction = xerrors.New("unknown action")

type ActionType int

const (
	ActionWork ActionType = iota + 1
	ActionOff
	ActionBack
	ActionActivity
)

// Action is one user interaction. Activity is set only for ActionActivity.
type Action struct {
	Type     ActionType
	Activity ActivityKind
}

var (
	Work = Action{Type: ActionWork}
	Off  = Action{Type: ActionOff}
	Back = Action{Type: ActionBack}
)

func StartActivity(kind ActivityKind) Action {
	return Action{Type: ActionActivity, Activity: kind}
}

// String returns the wire tag of the action.
func (a Action) String() string {
	switch a.Type {
	case ActionWork:
		return "work"
	case ActionOff:
		return "off"
	case ActionBack:
		return "back"
	case ActionActivity:
		return string(a.Activity)
	default:
		return "unknown"
	}
}

// ParseAction maps a transport tag onto an Action. Activity tags must be one
// of kinds.
func ParseAction(tag string, kinds []string) (Action, error) {
	switch tag {
	case "work":
		return Work, nil
	case "off":
		return Off, nil
	case "back":
		return Back, nil
	}
	for _, kind := range kinds {
		if kind == tag {
			return StartActivity(ActivityKind(kind)), nil
		}
	}
	return Action{}, xerrors.Errorf("parse %q: %w", tag, ErrUnknownAction)
}
