package rest

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/c360/chatkit/errors"
)

// Major parameters: path parameters whose value diversifies rate-limit
// buckets under one server hash. All other parameters share accounting.
var majorParamNames = map[string]bool{
	"channel.id": true,
	"guild.id":   true,
	"webhook.id": true,
}

// Route is an HTTP method plus a path template with {name} placeholders.
type Route struct {
	Method string
	Path   string
}

// String returns the route template in route-key form.
func (r Route) String() string {
	return r.Method + " " + r.Path
}

// Compile resolves the template's placeholders with the given values, in
// order. Values may be strings, Stringers, or anything fmt can print.
func (r Route) Compile(params ...any) (*CompiledRoute, error) {
	var (
		b         strings.Builder
		major     string
		majorName string
		used      int
	)

	rest := r.Path
	for {
		open := strings.IndexByte(rest, '{')
		if open < 0 {
			b.WriteString(rest)
			break
		}
		end := strings.IndexByte(rest[open:], '}')
		if end < 0 {
			return nil, errors.WrapInvalid(errors.ErrInvalidData, "Route", "Compile",
				fmt.Sprintf("unterminated placeholder in %q", r.Path))
		}
		end += open

		name := rest[open+1 : end]
		b.WriteString(rest[:open])

		if used >= len(params) {
			return nil, errors.WrapInvalid(errors.ErrInvalidData, "Route", "Compile",
				fmt.Sprintf("missing value for {%s} in %q", name, r.Path))
		}
		value := paramString(params[used])
		used++
		if value == "" {
			return nil, errors.WrapInvalid(errors.ErrInvalidData, "Route", "Compile",
				fmt.Sprintf("empty value for {%s} in %q", name, r.Path))
		}
		b.WriteString(url.PathEscape(value))

		if majorName == "" && majorParamNames[name] {
			majorName = name
			major = value
		}

		rest = rest[end+1:]
	}

	if used != len(params) {
		return nil, errors.WrapInvalid(errors.ErrInvalidData, "Route", "Compile",
			fmt.Sprintf("%d surplus parameters for %q", len(params)-used, r.Path))
	}

	return &CompiledRoute{
		route:     r,
		path:      b.String(),
		major:     major,
		majorName: majorName,
	}, nil
}

// MustCompile is Compile for routes known correct at build time; it panics
// on parameter mismatch.
func (r Route) MustCompile(params ...any) *CompiledRoute {
	cr, err := r.Compile(params...)
	if err != nil {
		panic(err)
	}
	return cr
}

func paramString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case fmt.Stringer:
		return s.String()
	default:
		return fmt.Sprint(v)
	}
}

// CompiledRoute is a route with its placeholders resolved, ready to
// execute. It carries the rate-limit identity of the request: the route key
// names the template group and the major parameter diversifies buckets
// within it.
type CompiledRoute struct {
	route     Route
	path      string
	major     string
	majorName string
}

// Method returns the HTTP method.
func (c *CompiledRoute) Method() string {
	return c.route.Method
}

// Path returns the resolved request path.
func (c *CompiledRoute) Path() string {
	return c.path
}

// MajorParam returns the value of the first major parameter in the
// template, or "" when the route has none.
func (c *CompiledRoute) MajorParam() string {
	return c.major
}

// RouteKey identifies the route group for rate-limit bucketing: method,
// path template, and the major parameter name when present.
func (c *CompiledRoute) RouteKey() string {
	if c.majorName == "" {
		return c.route.String()
	}
	return c.route.String() + " " + c.majorName
}

// URL joins the resolved path onto base.
func (c *CompiledRoute) URL(base string) string {
	return strings.TrimSuffix(base, "/") + c.path
}

func (c *CompiledRoute) String() string {
	return c.route.Method + " " + c.path
}
