// Package users manages tenant members and their sessions.
//
// User records go through the generic resource service with a policy that
// encodes the role rules: managers and above create users at or below their
// own level, nobody edits or deletes a peer or superior, and users can only
// change their own profile fields and password.
//
// Authenticate checks a bcrypt password hash and issues a signed session token.
// Unknown emails, wrong passwords and deactivated users fail identically.
package users
