// Package gate throttles the startup dashboard to once per interval, and at
// least once per calendar day, for the lifetime of a login session.
package gate
