package internalcheck

import (
	"fmt"
	"go/ast"
	"go/token"
	"go/types"
	"strconv"
	"strings"
	"testing"

	"golang.org/x/tools/go/packages"
)

const loggingPackage = "github.com/corosync/corosync-go/pkg/corosync/logging"

func loadBindings(t *testing.T) []*packages.Package {
	t.Helper()
	cfg := &packages.Config{
		Mode: packages.NeedSyntax | packages.NeedTypes | packages.NeedTypesInfo | packages.NeedFiles | packages.NeedName,
	}
	pkgs, err := packages.Load(cfg, "github.com/corosync/corosync-go/pkg/corosync/...")
	if err != nil {
		t.Fatalf("load packages: %v", err)
	}
	return pkgs
}

// TestNoPayloadLogging rejects byte slices passed to a logger. Payloads are
// logged by size with logging.Redacted instead.
func TestNoPayloadLogging(t *testing.T) {
	var findings []string

	for _, pkg := range loadBindings(t) {
		for _, file := range pkg.Syntax {
			ast.Inspect(file, func(n ast.Node) bool {
				call, ok := n.(*ast.CallExpr)
				if !ok {
					return true
				}
				selector, ok := call.Fun.(*ast.SelectorExpr)
				if !ok {
					return true
				}
				obj := pkg.TypesInfo.Uses[selector.Sel]
				if obj == nil || obj.Pkg() == nil || !isLogCall(obj.Pkg().Path(), obj.Name()) {
					return true
				}
				for _, arg := range call.Args {
					if isByteSlice(pkg.TypesInfo.TypeOf(arg)) {
						pos := pkg.Fset.Position(arg.Pos())
						findings = append(findings, fmt.Sprintf("%s: byte slice passed to %s", pos, obj.Name()))
					}
				}
				return true
			})
		}
	}

	if len(findings) > 0 {
		t.Fatalf("payload logging policy violation:\n%s", strings.Join(findings, "\n"))
	}
}

// TestNoHexFormatting rejects %x verbs, the usual way payload bytes end up
// in error strings.
func TestNoHexFormatting(t *testing.T) {
	var findings []string

	for _, pkg := range loadBindings(t) {
		for _, file := range pkg.Syntax {
			ast.Inspect(file, func(n ast.Node) bool {
				call, ok := n.(*ast.CallExpr)
				if !ok {
					return true
				}
				selector, ok := call.Fun.(*ast.SelectorExpr)
				if !ok {
					return true
				}
				obj := pkg.TypesInfo.Uses[selector.Sel]
				if obj == nil || obj.Pkg() == nil {
					return true
				}
				idx, ok := formatIndex(obj.Pkg().Path(), obj.Name())
				if !ok || len(call.Args) <= idx {
					return true
				}
				lit, ok := call.Args[idx].(*ast.BasicLit)
				if !ok || lit.Kind != token.STRING {
					return true
				}
				value, err := strconv.Unquote(lit.Value)
				if err != nil {
					return true
				}
				if strings.Contains(value, "%x") || strings.Contains(value, "%X") {
					findings = append(findings, fmt.Sprintf("%s: avoid %%x formatting of payloads", pkg.Fset.Position(lit.Pos())))
				}
				return true
			})
		}
	}

	if len(findings) > 0 {
		t.Fatalf("payload formatting policy violation:\n%s", strings.Join(findings, "\n"))
	}
}

func isLogCall(pkgPath, name string) bool {
	switch pkgPath {
	case loggingPackage:
		switch name {
		case "Debug", "Info", "Warn", "Error", "With":
			return true
		}
	case "log/slog":
		switch name {
		case "Debug", "Info", "Warn", "Error", "DebugContext", "InfoContext",
			"WarnContext", "ErrorContext", "Log", "With", "Any":
			return true
		}
	}
	return false
}

func formatIndex(pkgPath, name string) (int, bool) {
	switch pkgPath {
	case "fmt":
		switch name {
		case "Errorf", "Printf", "Sprintf":
			return 0, true
		case "Fprintf":
			return 1, true
		}
	case "github.com/corosync/corosync-go/pkg/corosync":
		switch name {
		case "InvalidParam":
			return 1, true
		case "Errorf":
			return 2, true
		}
	}
	return 0, false
}

func isByteSlice(typ types.Type) bool {
	if typ == nil {
		return false
	}
	switch tt := typ.(type) {
	case *types.Slice:
		return isByte(tt.Elem())
	case *types.Pointer:
		return isByteSlice(tt.Elem())
	case *types.Named:
		return isByteSlice(tt.Underlying())
	default:
		return false
	}
}

func isByte(t types.Type) bool {
	basic, ok := t.(*types.Basic)
	return ok && basic.Kind() == types.Byte
}
