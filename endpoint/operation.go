package endpoint

import (
	"fmt"
	"net/http"
	"net/url"
	"reflect"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/go-querystring/query"
)

// Kind tells reads and writes apart.
type Kind string

const (
	KindQuery    Kind = "query"
	KindMutation Kind = "mutation"
)

// BuildFunc turns invocation arguments into a request. It must be pure: the
// same args always produce the same request.
type BuildFunc func(args any) (Request, error)

// TagsFunc derives extra tags from invocation arguments.
type TagsFunc func(args any) Tags

// Operation describes one named remote call. Operations are plain data and
// are never mutated once registered.
type Operation struct {
	Name   string
	Kind   Kind
	Method string
	// Path is a URL path template; "{name}" segments are filled from args.
	Path string
	// Build overrides the default path/query/body builder.
	Build BuildFunc

	// Provides lists the tags a query result depends on.
	Provides Tags
	// ProvidesFor adds per-invocation tags to Provides.
	ProvidesFor TagsFunc

	// Invalidates lists the tags a successful mutation invalidates.
	Invalidates Tags
	// InvalidatesFor adds per-invocation tags to Invalidates.
	InvalidatesFor TagsFunc
}

// Query declares a read operation.
func Query(name, method, path string, provides ...Tag) Operation {
	return Operation{Name: name, Kind: KindQuery, Method: method, Path: path, Provides: Tags(provides).dedupe()}
}

// Mutation declares a write operation.
func Mutation(name, method, path string, invalidates ...Tag) Operation {
	return Operation{Name: name, Kind: KindMutation, Method: method, Path: path, Invalidates: Tags(invalidates).dedupe()}
}

// IsQuery reports whether the operation is a read.
func (o Operation) IsQuery() bool { return o.Kind == KindQuery }

// IsMutation reports whether the operation is a write.
func (o Operation) IsMutation() bool { return o.Kind == KindMutation }

// ProvidedTags returns the tags a result fetched with args depends on.
// Tags derived from args are normalised like registered ones.
func (o Operation) ProvidedTags(args any) Tags {
	tags := o.Provides.Clone()
	if o.ProvidesFor != nil {
		tags = tags.Union(o.ProvidesFor(args).normalized())
	}
	return tags.dedupe()
}

// InvalidatedTags returns the tags a successful call with args invalidates.
func (o Operation) InvalidatedTags(args any) Tags {
	tags := o.Invalidates.Clone()
	if o.InvalidatesFor != nil {
		tags = tags.Union(o.InvalidatesFor(args).normalized())
	}
	return tags.dedupe()
}

// BuildRequest produces the HTTP request for args.
func (o Operation) BuildRequest(args any) (Request, error) {
	if o.Build != nil {
		req, err := o.Build(args)
		if err != nil {
			return Request{}, err
		}
		if req.Method == "" {
			req.Method = o.Method
		}
		return req, nil
	}
	return buildDefault(o, args)
}

// Request is the transport-neutral shape of one call.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   any
}

// URL joins the request path and query onto base.
func (r Request) URL(base string) string {
	u := strings.TrimRight(base, "/") + "/" + strings.TrimLeft(r.Path, "/")
	if len(r.Query) > 0 {
		u += "?" + r.Query.Encode()
	}
	return u
}

// HasBody reports whether the request carries a JSON body.
func (r Request) HasBody() bool { return r.Body != nil }

// Bodied lets an argument value supply its JSON body separately from the
// values used for the path and query string.
type Bodied interface {
	RequestBody() any
}

// Update carries an identifier for the path and a payload for the body.
type Update struct {
	ID   string `url:"id"`
	Data any    `url:"-"`
}

func (u Update) RequestBody() any { return u.Data }

func buildDefault(op Operation, args any) (Request, error) {
	req := Request{Method: op.Method}

	values, scalar, err := argValues(args)
	if err != nil {
		return Request{}, buildError(op.Name, err.Error())
	}

	path, err := fillPath(op.Path, values, scalar)
	if err != nil {
		return Request{}, buildError(op.Name, err.Error())
	}
	req.Path = path

	switch op.Method {
	case http.MethodGet, http.MethodDelete, http.MethodHead:
		if len(values) > 0 {
			req.Query = values
		}
	default:
		if b, ok := args.(Bodied); ok {
			req.Body = b.RequestBody()
		} else if args != nil && scalar == nil {
			req.Body = args
		}
	}
	return req, nil
}

func buildError(op, msg string) error {
	return goerrors.New(fmt.Sprintf("operation %s: %s", op, msg), goerrors.CategoryValidation).
		WithTextCode("BAD_REQUEST_ARGS")
}

// argValues splits args into named values or a single scalar.
func argValues(args any) (url.Values, *string, error) {
	if args == nil {
		return url.Values{}, nil, nil
	}

	switch v := args.(type) {
	case url.Values:
		return cloneValues(v), nil, nil
	case map[string]string:
		out := url.Values{}
		for k, val := range v {
			out.Set(k, val)
		}
		return out, nil, nil
	case map[string]any:
		out := url.Values{}
		for k, val := range v {
			out.Set(k, fmt.Sprint(val))
		}
		return out, nil, nil
	}

	rv := reflect.ValueOf(args)
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return url.Values{}, nil, nil
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Struct:
		values, err := query.Values(rv.Interface())
		if err != nil {
			return nil, nil, err
		}
		return values, nil, nil
	case reflect.String, reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		s := fmt.Sprint(rv.Interface())
		return url.Values{}, &s, nil
	default:
		return nil, nil, fmt.Errorf("unsupported argument type %T", args)
	}
}

// fillPath substitutes "{name}" placeholders, consuming the used values.
func fillPath(tmpl string, values url.Values, scalar *string) (string, error) {
	names := placeholders(tmpl)
	if scalar != nil && len(names) != 1 {
		return "", fmt.Errorf("scalar argument needs exactly one path placeholder, %q has %d", tmpl, len(names))
	}

	path := tmpl
	for _, name := range names {
		var val string
		if scalar != nil {
			val = *scalar
		} else {
			if _, ok := values[name]; !ok {
				return "", fmt.Errorf("missing value for path parameter %q", name)
			}
			val = values.Get(name)
			values.Del(name)
		}
		if val == "" {
			return "", fmt.Errorf("empty value for path parameter %q", name)
		}
		path = strings.Replace(path, "{"+name+"}", url.PathEscape(val), 1)
	}
	return path, nil
}

func placeholders(tmpl string) []string {
	var names []string
	for {
		start := strings.IndexByte(tmpl, '{')
		if start < 0 {
			return names
		}
		end := strings.IndexByte(tmpl[start:], '}')
		if end < 0 {
			return names
		}
		names = append(names, tmpl[start+1:start+end])
		tmpl = tmpl[start+end+1:]
	}
}

func cloneValues(v url.Values) url.Values {
	out := make(url.Values, len(v))
	for k, vals := range v {
		out[k] = append([]string(nil), vals...)
	}
	return out
}
