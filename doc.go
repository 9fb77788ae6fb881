// Package auth provides the credential and authorization core of the Natours
// API: password hashing, signed session tokens, password reset tokens, role
// based access control and the Fiber routes that expose them.
//
// Sessions:
//   - Tokens are HS256 JWTs that carry only the subject and registered time
//     claims. Role and active status are read from the CredentialStore on
//     every request, so revoking an account or changing a role is immediate.
//   - A token issued before the user's last password change is rejected.
//     The change is recorded one second early (Config.PasswordChangeSkew)
//     so the token returned by the change itself stays valid.
//
// Access pipeline:
//   - Every protected request runs through AccessPipeline, which moves from
//     anonymous through authenticating, authenticated and authorized to
//     dispatched, or ends in rejected. The trail is kept on PipelineRun.
//     Auther.Protect, Auther.RestrictTo and Auther.Guard mount it as Fiber
//     middleware.
//
// Password reset:
//   - ForgotPassword stores only the SHA-256 of a random token and hands the
//     plaintext to a Dispatcher. Unknown emails succeed silently. If delivery
//     fails the stored token is cleared and ErrDelivery is returned.
//   - ResetPassword consumes the token with a guarded update, so a token can
//     be used once even under concurrent requests.
//
// Errors:
//   - Operations return errors that match one of the Err* kinds through
//     errors.Is. Classify maps them to an HTTP status and a client safe
//     message, ErrorHandler renders them for Fiber.
package auth
