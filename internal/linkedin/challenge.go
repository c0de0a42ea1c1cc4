package linkedin

import "bytes"

// Challenge walls come back with a 200 and a body pointing at the checkpoint
// flow, so status codes alone can't tell a challenge from bad credentials.
var challengeSignatures = [][]byte{
	[]byte(`"login_result":"challenge"`),
	[]byte("/checkpoint/challenge"),
	[]byte("captcha"),
	[]byte("security verification"),
}

// detectChallenge reports whether an auth response body is a login
// challenge/checkpoint wall rather than a plain credential failure.
func detectChallenge(body []byte) bool {
	lower := bytes.ToLower(body)
	for _, sig := range challengeSignatures {
		if bytes.Contains(lower, sig) {
			return true
		}
	}
	return false
}
