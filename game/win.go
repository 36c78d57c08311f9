package game

import (
	"fmt"

	"github.com/Didrablian/deceptivemind-sub000/domain"
)

// EvaluateWin applies the variant's roster win rules after an elimination
// or kill. Rule order is fixed and short-circuiting: the executed-wins role
// first, then majority victory (minority wiped out), then minority parity.
// executedId is the player eliminated by the triggering event, or "".
// A nil result means the game continues.
func EvaluateWin(s *domain.Session, v Variant, executedId string) *domain.WinResult {
	if v.ExecutedWinsRole != "" && executedId != "" {
		if p := s.PlayerById(executedId); p != nil && p.Role == v.ExecutedWinsRole {
			return &domain.WinResult{
				Winner: string(v.ExecutedWinsRole),
				Reason: fmt.Sprintf("%s was executed, which is exactly what the %s wanted", p.Name, v.ExecutedWinsRole),
			}
		}
	}

	minority, majority := 0, 0
	for _, p := range s.Players {
		if !p.IsAlive {
			continue
		}
		if p.Role == v.MinorityRole {
			minority++
		} else {
			majority++
		}
	}

	if minority == 0 {
		return &domain.WinResult{
			Winner: v.MajorityName,
			Reason: fmt.Sprintf("all %s have been eliminated", v.MinorityName),
		}
	}
	if minority >= majority {
		return &domain.WinResult{
			Winner: v.MinorityName,
			Reason: fmt.Sprintf("the %s outnumber everyone left", v.MinorityName),
		}
	}
	return nil
}
