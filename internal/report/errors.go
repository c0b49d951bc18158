package report

// InputError is a request validation failure: empty tracking-URL list,
// malformed URL, unparseable end date, or no campaigns matching the
// newsletter type. The message is meant for the front end as-is.
type InputError struct {
	Message string
}

func (e *InputError) Error() string { return e.Message }
