package diag

import (
	"fmt"
	"sort"
	"sync"

	"github.com/go-automake/automake"
)

// Category identifies a class of diagnostics that are enabled and disabled
// together.
type Category int

// CategoryDescriptor describes a diagnostic category.
type CategoryDescriptor struct {
	// Category is the identifier assigned at registration.
	Category Category

	// Value is the name used on the command line, as in -Wportability.
	Value string

	// Description is a one line summary shown by --help.
	Description string

	// Fatal categories cannot be disabled and are always reported as
	// errors.
	Fatal bool

	// Default reports whether the category is enabled by default.
	Default bool

	// MinStrictness is the lowest strictness at which a default category
	// is enabled.
	MinStrictness automake.Strictness
}

var (
	categoryToDescriptors = map[Category]CategoryDescriptor{}
	valueToDescriptors    = map[string]CategoryDescriptor{}
	nextCategory          = 1
	registerLock          sync.Mutex
)

var (
	// CategoryError covers problems that prevent a correct Makefile.in from
	// being produced.
	CategoryError = register(CategoryDescriptor{
		Value:       "error",
		Description: "problems that prevent a correct Makefile.in",
		Fatal:       true,
	})

	// CategoryGNU covers departures from the GNU coding standards.
	CategoryGNU = register(CategoryDescriptor{
		Value:         "gnu",
		Description:   "GNU coding standards",
		Default:       true,
		MinStrictness: automake.GNU,
	})

	// CategoryObsolete covers obsolete features or constructions.
	CategoryObsolete = register(CategoryDescriptor{
		Value:       "obsolete",
		Description: "obsolete features or constructions",
		Default:     true,
	})

	// CategoryOverride covers user redefinitions of automake rules or
	// variables.
	CategoryOverride = register(CategoryDescriptor{
		Value:       "override",
		Description: "user redefinitions of Automake rules or variables",
		Default:     true,
	})

	// CategoryPortability covers constructs that are not portable across
	// make implementations.
	CategoryPortability = register(CategoryDescriptor{
		Value:         "portability",
		Description:   "portability issues (e.g., use of GNU make extensions)",
		Default:       true,
		MinStrictness: automake.GNU,
	})

	// CategoryExtraPortability covers portability issues tied to obscure
	// tools.
	CategoryExtraPortability = register(CategoryDescriptor{
		Value:       "extra-portability",
		Description: "extra portability issues related to obscure tools",
	})

	// CategorySyntax covers dubious syntactic constructs.
	CategorySyntax = register(CategoryDescriptor{
		Value:       "syntax",
		Description: "dubious syntactic constructs",
		Default:     true,
	})

	// CategoryUnsupported covers unsupported or incomplete features.
	CategoryUnsupported = register(CategoryDescriptor{
		Value:       "unsupported",
		Description: "unsupported or incomplete features",
		Default:     true,
	})
)

func register(descriptor CategoryDescriptor) Category {
	registerLock.Lock()
	defer registerLock.Unlock()

	descriptor.Category = Category(nextCategory)

	if _, ok := valueToDescriptors[descriptor.Value]; ok {
		panic(fmt.Sprintf("category %q is already registered", descriptor.Value))
	}

	categoryToDescriptors[descriptor.Category] = descriptor
	valueToDescriptors[descriptor.Value] = descriptor

	nextCategory++
	return descriptor.Category
}

// Descriptor returns the descriptor for the category.
func (c Category) Descriptor() CategoryDescriptor {
	d, ok := categoryToDescriptors[c]
	if !ok {
		return categoryToDescriptors[CategoryError]
	}
	return d
}

// String returns the category name.
func (c Category) String() string {
	return c.Descriptor().Value
}

// ParseCategory returns the category registered under name.
func ParseCategory(name string) (Category, bool) {
	d, ok := valueToDescriptors[name]
	return d.Category, ok
}

type byValue []CategoryDescriptor

func (a byValue) Len() int           { return len(a) }
func (a byValue) Swap(i, j int)      { a[i], a[j] = a[j], a[i] }
func (a byValue) Less(i, j int) bool { return a[i].Value < a[j].Value }

// Categories returns all registered descriptors sorted by name.
func Categories() []CategoryDescriptor {
	result := make([]CategoryDescriptor, 0, len(categoryToDescriptors))
	for _, d := range categoryToDescriptors {
		result = append(result, d)
	}
	sort.Sort(byValue(result))
	return result
}
