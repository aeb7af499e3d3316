package endpoint

import (
	"fmt"
	"net/http"
	"sort"

	goerrors "github.com/goliatone/go-errors"
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Registry holds the process-wide set of operations. It is built once by
// Register and is read-only afterwards, so it is safe for concurrent use.
type Registry struct {
	ops      map[string]Operation
	names    []string
	tagTypes Tags
}

// Option configures Register.
type Option func(*registryConfig)

type registryConfig struct {
	tagTypes Tags
}

// WithTagTypes restricts the tags operations may use to the given list.
// Qualified tags ("services:42") are checked by their resource part.
func WithTagTypes(tags ...Tag) Option {
	return func(c *registryConfig) {
		c.tagTypes = Tags(tags).normalized()
	}
}

// Register validates ops and builds a Registry. It fails on the first
// invalid operation or duplicate name.
func Register(ops []Operation, opts ...Option) (*Registry, error) {
	cfg := registryConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	r := &Registry{
		ops:      make(map[string]Operation, len(ops)),
		names:    make([]string, 0, len(ops)),
		tagTypes: cfg.tagTypes,
	}

	for _, op := range ops {
		if err := op.Validate(); err != nil {
			return nil, err
		}
		if _, exists := r.ops[op.Name]; exists {
			return nil, goerrors.New(fmt.Sprintf("operation %q registered twice", op.Name), goerrors.CategoryConflict).
				WithTextCode("DUPLICATE_OPERATION")
		}
		op.Provides = op.Provides.normalized()
		op.Invalidates = op.Invalidates.normalized()
		if err := r.checkTags(op); err != nil {
			return nil, err
		}
		r.ops[op.Name] = op
		r.names = append(r.names, op.Name)
	}

	sort.Strings(r.names)
	return r, nil
}

// MustRegister is Register for package-level catalogs; it panics on error.
func MustRegister(ops []Operation, opts ...Option) *Registry {
	r, err := Register(ops, opts...)
	if err != nil {
		panic(err)
	}
	return r
}

// Get returns the named operation.
func (r *Registry) Get(name string) (Operation, error) {
	op, ok := r.ops[name]
	if !ok {
		return Operation{}, goerrors.New(fmt.Sprintf("operation %q is not registered", name), goerrors.CategoryNotFound).
			WithTextCode("UNKNOWN_OPERATION")
	}
	return op, nil
}

// Lookup is Get without the error value.
func (r *Registry) Lookup(name string) (Operation, bool) {
	op, ok := r.ops[name]
	return op, ok
}

// Names returns the registered operation names in sorted order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.names...)
}

// TagTypes returns the declared tag list, or nil when unrestricted.
func (r *Registry) TagTypes() Tags {
	return r.tagTypes.Clone()
}

// Providers returns the names of queries whose static tags intersect tag.
func (r *Registry) Providers(tag Tag) []string {
	var names []string
	for _, name := range r.names {
		op := r.ops[name]
		if op.IsQuery() && op.Provides.Intersects(Tags{tag}) {
			names = append(names, name)
		}
	}
	return names
}

func (r *Registry) checkTags(op Operation) error {
	if len(r.tagTypes) == 0 {
		return nil
	}
	for _, t := range op.Provides.Union(op.Invalidates) {
		if !r.tagTypes.Contains(t.Resource()) {
			return goerrors.New(fmt.Sprintf("operation %q uses undeclared tag %q", op.Name, t), goerrors.CategoryValidation).
				WithTextCode("UNKNOWN_TAG")
		}
	}
	return nil
}

// Validate checks the operation definition.
func (o Operation) Validate() error {
	err := validation.ValidateStruct(&o,
		validation.Field(&o.Name, validation.Required),
		validation.Field(&o.Kind, validation.Required, validation.In(KindQuery, KindMutation)),
		validation.Field(&o.Method, validation.Required, validation.In(
			http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete,
		)),
		validation.Field(&o.Path, validation.When(o.Build == nil, validation.Required)),
		validation.Field(&o.Provides, validation.When(o.Kind == KindMutation, validation.Empty)),
		validation.Field(&o.Invalidates, validation.When(o.Kind == KindQuery, validation.Empty)),
	)
	if err == nil {
		err = o.validateTagFuncs()
	}
	if err != nil {
		return goerrors.FromOzzoValidation(err, fmt.Sprintf("invalid operation %q", o.Name))
	}
	return nil
}

func (o Operation) validateTagFuncs() error {
	errs := validation.Errors{}
	if o.Kind == KindMutation && o.ProvidesFor != nil {
		errs["ProvidesFor"] = validation.NewError("validation_mutation_provides", "mutations cannot provide tags")
	}
	if o.Kind == KindQuery && o.InvalidatesFor != nil {
		errs["InvalidatesFor"] = validation.NewError("validation_query_invalidates", "queries cannot invalidate tags")
	}
	return errs.Filter()
}
