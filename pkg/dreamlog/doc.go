// Package dreamlog provides the core of the dream-log journaling backend:
// dream CRUD, tagging, sleep-pattern tracking, and the image attachment
// lifecycle, with pluggable repository and blob storage backends.
//
// It exposes a single Service interface. Edits to dream content reconcile the
// owner's image records synchronously (active <-> pending_delete), while the
// physical object-store work runs in background workers (see the tasks
// subpackage) that report progress through a Publisher (see notify).
//
// Image Lifecycle
//
// Every image URL embedded in dream content maps to one ImageRecord per user.
// Removing a URL from content soft-deletes its record; re-adding it before
// the sweep threshold restores it. The periodic sweep deletes the stored
// object best-effort and purges records that stayed pending_delete past the
// threshold.
package dreamlog
