package ioutil

import (
	"fmt"
	"io"
)

// ReadLimited drains at most limit bytes of r into a string. A read
// error yields a placeholder naming the error rather than an empty
// string, so provider response bodies quoted in errors and logs never
// disappear silently.
func ReadLimited(r io.Reader, limit int64) string {
	body, err := io.ReadAll(io.LimitReader(r, limit))
	if err != nil {
		return fmt.Sprintf("<unreadable: %v>", err)
	}
	return string(body)
}
