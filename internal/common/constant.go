package common

// AuthorizationHeaderName is the HTTP header and gRPC metadata key used to
// carry the bearer token.
const AuthorizationHeaderName = "authorization"

// BearerPrefix precedes the token in the authorization value.
const BearerPrefix = "Bearer "

// Public messages. These are the only strings the transports return for
// the corresponding failure classes.
const (
	MessageSignupSuccessful   = "Signup Successful!"
	MessageAccountExists      = "User already exists"
	MessageInvalidCredentials = "Invalid Credentials"
	MessageUnauthenticated    = "Authentication invalid"
	MessageServerError        = "Server Error"
)
