package login

// State is the position of the login flow
type State int

const (
	Start State = iota
	AwaitingUsername
	AwaitingOptionalChallenge
	AwaitingPassword
	Submitted
	AwaitingHome
	AwaitingTrends
	Complete
	Failed
)

var stateNames = [...]string{
	Start:                     "start",
	AwaitingUsername:          "awaiting_username",
	AwaitingOptionalChallenge: "awaiting_optional_challenge",
	AwaitingPassword:          "awaiting_password",
	Submitted:                 "submitted",
	AwaitingHome:              "awaiting_home",
	AwaitingTrends:            "awaiting_trends",
	Complete:                  "complete",
	Failed:                    "failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// Gate names a wait the flow must pass
type Gate string

const (
	GateLoginPage        Gate = "login page"
	GateUsername         Gate = "username field"
	GateAdvance          Gate = "next button"
	GateChallenge        Gate = "challenge field"
	GateChallengeAdvance Gate = "challenge next button"
	GatePassword         Gate = "password field"
	GateSubmit           Gate = "login button"
	GateHome             Gate = "home page"
	GateTrends           Gate = "trends"
)
