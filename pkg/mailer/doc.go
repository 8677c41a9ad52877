// Package mailer sends templated transactional email.
//
// Templates are markdown files with YAML frontmatter; the renderer executes
// them as text/template, converts the result to HTML with goldmark, and
// injects it into an HTML layout. Delivery is abstracted behind the Sender
// interface; the resend subpackage implements it with the Resend API.
//
// The mailer deliberately knows nothing about orders or jobs: notification
// policy (what to send, and that failures are swallowed) lives with the
// caller.
package mailer
