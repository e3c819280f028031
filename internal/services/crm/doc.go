// Package crm is the client for the CRM holding contacts, quiz-session
// entities, and per-participant attempt records. Empty results and client
// errors map to the not-found sentinel so callers can distinguish "entity
// does not exist" from transport failures.
package crm
