// Package iam (Identity and Access Management) is the authentication and
// authorization engine of keygate: password, refresh-token and
// authorization-code grants over opaque bearer sessions, invite-gated
// sign-up, role plus ownership authorization and an idempotent
// administrator bootstrap.
//
// # Overview
//
//   - iam/credential:   PBKDF2-HMAC-SHA512 hashing, constant-time verification
//   - iam/token:        random token / id generation with bounded uniqueness retry
//   - iam/session:      account sessions, grants, bearer validation, revocation
//   - iam/authcode:     single-use authorization codes
//   - iam/client:       registered OAuth clients and their validation
//   - iam/account:      accounts, public profiles, recovery info, roles
//   - iam/signup:       sign-up rules and the account-graph creation
//   - iam/invite:       invite codes and their staff-only management
//   - iam/authz:        role classification and per-resource policies
//   - iam/bootstrap:    role and client seeding, administrator reconciliation
//   - iam/auth:         bearer middleware, OAuth endpoints, audit, throttle, reaper
//
// # Architecture
//
//	HTTP Handler  →  Service Layer  →  Repository Interface  →  Infrastructure (Postgres/Redis)
//
// Each sub-domain owns an error registry ("SESSION", "INVITE", "AUTH_CODE"...),
// its entities and a port.go with the repository interfaces. iamcontainer
// builds the whole graph from a Deps struct.
//
// # Tokens
//
// Access and refresh tokens are random strings stored with the session. They
// carry no claims. A refresh grant replaces both tokens of the same session.
// Expiry is computed from the creation dates and the configured lifetimes;
// a credential is expired from the instant creation + lifetime is reached.
//
// # Authorization
//
// Every account has one role: administrator, moderator or user. Staff
// (administrator and moderator) manage invites and may edit any profile;
// a user may edit only their own. Unassigned accounts are denied everything.
//
// # ──────────────────────────────────────────────────────
// # ENDPOINT REFERENCE
// # ──────────────────────────────────────────────────────
//
// ## OAuth  (registered by AuthHandlers)
//
// ### POST /oauth/token
//
// Parameters come from the form body, falling back to the query string:
//
//	grant_type=password       username, password
//	grant_type=refresh_token  refresh_token
//	grant_type=code           code
//	client_id, client_secret  optional on every grant
//
// Response 200:
//
//	{
//	  "access_token":  "<token>",
//	  "refresh_token": "<token>",
//	  "token_type":    "Bearer",
//	  "expires_in":    3600,
//	  "scope":         "read+write"
//	}
//
// Any rejected grant answers 401 {"error":"wrong data"}. Repeated password
// failures for the same username and IP answer 429.
//
// ### POST /oauth/sign_up
//
// Request body:
//
//	{
//	  "login": "alice", "password": "...", "confirm_password": "...",
//	  "nickname": "Alice", "email": "alice@example.com", "invite_code": "WELCOME"
//	}
//
// Response 200: {"status":"OK","body":{"account_id":"..."}}
//
// Response 400: {"status":"ERROR","body":["PasswordDoesNotMatch","EmailIsInvalid"]}
//
// ### POST /oauth/code          (bearer)
//
// Issues an authorization code for the caller: {"code":"...","expires_in":60}
//
// ### POST /oauth/sign_out      (bearer)
// ### POST /oauth/sign_out_all  (bearer)
//
// Delete the current session, or every session of the caller. 204.
//
// ## Bearer middleware
//
// Authorization: Bearer <access_token>
//
//	missing → 401, unknown → 403, expired → 401 (the session is deleted)
//
// Body: {"error":"invalid_token","error_description":"The access token expired"}
// plus a WWW-Authenticate header with the same values.
//
// ## User  (registered by AuthHandlers and ProfileHandlers)
//
//	GET   /api/ping                  "pong"
//	GET   /api/user/my_id            caller account id, plain text
//	GET   /api/user/my_nickname      caller nickname, plain text
//	GET   /api/user/sessions         caller sessions without tokens
//	GET   /api/profiles/:account_id  public profile
//	PATCH /api/profiles/:account_id  {"info": "..."}; owner or staff
//
// ## Invites  (registered by InviteHandlers, staff only)
//
//	POST   /api/invites      {"invite_code": "", "one_use": true}
//	GET    /api/invites      ?page=1&page_size=20
//	GET    /api/invites/:id
//	PUT    /api/invites/:id  {"invite_code": "...", "one_use": false}
//	DELETE /api/invites/:id
//
// Non-OAuth endpoints wrap their body in {"status": "OK"|"WARNING"|"ERROR", "body": ...}.
// Errors not handled by an endpoint go through errx:
//
//	{"error": "...", "code": "INVITE_NOT_FOUND", "type": "NOT_FOUND", "status": 404, "request_id": "..."}
package iam
