package http

import (
	"fmt"
	"io"
	"net/http"
	"reflect"
	"runtime"
	"sort"
	"strings"
)

// RouteInfo holds information about a registered route.
type RouteInfo struct {
	Method  string
	Path    string
	Handler string
}

// CollectRoutes walks the router and collects all registered routes,
// sorted by path then method.
func CollectRoutes(router Router) []RouteInfo {
	var routes []RouteInfo

	_ = router.Walk(func(method, path string, handler http.Handler) error {
		routes = append(routes, RouteInfo{
			Method:  method,
			Path:    path,
			Handler: handlerName(handler),
		})
		return nil
	})

	sort.Slice(routes, func(i, j int) bool {
		if routes[i].Path == routes[j].Path {
			return routes[i].Method < routes[j].Method
		}
		return routes[i].Path < routes[j].Path
	})
	return routes
}

// PrintRoutes writes the route table. Used at startup in debug mode.
func PrintRoutes(w io.Writer, routes []RouteInfo) {
	fmt.Fprintf(w, "registered %d routes\n", len(routes))
	for _, r := range routes {
		fmt.Fprintf(w, "%-8s %-50s %s\n", r.Method, r.Path, r.Handler)
	}
}

// handlerName extracts the handler function name using reflection.
func handlerName(handler http.Handler) string {
	fn := runtime.FuncForPC(reflect.ValueOf(handler).Pointer())
	if fn == nil {
		return fmt.Sprintf("%T", handler)
	}
	name := fn.Name()
	if idx := strings.LastIndex(name, "/"); idx >= 0 {
		name = name[idx+1:]
	}
	return strings.TrimSuffix(name, "-fm")
}
