package vault

// State is the lifecycle position of one user's vault.
type State int

const (
	// StateNoVault: no settings row exists for the user.
	StateNoVault State = iota
	// StateSettingUp is the transient step inside Setup. State never reports
	// it because Setup holds the service lock until the vault is Locked.
	StateSettingUp
	StateLocked
	StateUnlocked
)

func (s State) String() string {
	switch s {
	case StateNoVault:
		return "no vault"
	case StateSettingUp:
		return "setting up"
	case StateLocked:
		return "locked"
	case StateUnlocked:
		return "unlocked"
	default:
		return "unknown"
	}
}
