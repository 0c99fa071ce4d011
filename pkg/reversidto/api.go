package reversidto

// ErrorCode is the machine-readable reason of a rejected request.
type ErrorCode string

const (
	CodeNotFound     ErrorCode = "not_found"
	CodeSeatTaken    ErrorCode = "seat_taken"
	CodeUnauthorized ErrorCode = "unauthorized"
	CodeNotYourTurn  ErrorCode = "not_your_turn"
	CodeTooSoon      ErrorCode = "too_soon"
	CodeIllegalMove  ErrorCode = "illegal_move"
	CodeBadRequest   ErrorCode = "bad_request"
	CodeUnavailable  ErrorCode = "unavailable"
	CodeInternal     ErrorCode = "internal"
)

// ErrorBody is the JSON body of every non-2xx response.
type ErrorBody struct {
	Code   ErrorCode `json:"code"`
	Detail string    `json:"detail"`
	// RetryAfterMs is set for CodeTooSoon.
	RetryAfterMs int64 `json:"retry_after_ms,omitempty"`
}

// CreateRequest is the body of POST /games. TurnCooldown is in seconds; omitted fields take the
// server defaults and omitted seats are human.
type CreateRequest struct {
	TurnCooldown *float64 `json:"turn_cooldown,omitempty"`
	BlackIsHuman *bool    `json:"black_is_human,omitempty"`
	WhiteIsHuman *bool    `json:"white_is_human,omitempty"`
}

type CreateResponse struct {
	GameID string `json:"game_id"`
}

type ClaimRequest struct {
	Player Side `json:"player"`
}

type ClaimResponse struct {
	GameID string `json:"game_id"`
	Player Side   `json:"player"`
	Token  string `json:"token"`
}

type MoveRequest struct {
	X      *int   `json:"x"`
	Y      *int   `json:"y"`
	Player Side   `json:"player"`
	Token  string `json:"token"`
}
