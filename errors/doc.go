/*
Package errors implements the error handling used across fundtool.

Reuse the root errors declared in this package whenever possible. Each error
created at runtime should wrap one of them so that callers can classify
failures with Is, for example to tell a connectivity problem (ErrNetwork),
which is retried, from a configuration problem (ErrInput), which is fatal.

If you need a new root error, declare it with Register(code, description)
during program startup.

Create errors using ErrXyz.New("...") or errors.Wrap(err, "...") at the point
of failure, so that a stack trace is attached. Only the innermost wrap records
the stack trace.

Once you have an error, fmt verbs give more context
	%s is just the error message
	%+v is the full stack trace
	%v appends a compressed [filename:line] where the error was created
*/
package errors
