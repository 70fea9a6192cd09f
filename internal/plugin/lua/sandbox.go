package lua

import (
	"strings"

	"github.com/go-logr/logr"
	lua "github.com/yuin/gopher-lua"
)

// dangerousGlobals can load code from disk or strings.
var dangerousGlobals = []string{
	"dofile",
	"loadfile",
	"load",
	"loadstring",
	"require",
	"module",
}

// installSandbox removes code-loading globals and routes print to log.
func installSandbox(L *lua.LState, log logr.Logger) {
	for _, name := range dangerousGlobals {
		L.SetGlobal(name, lua.LNil)
	}

	L.SetGlobal("print", L.NewFunction(func(L *lua.LState) int {
		n := L.GetTop()
		parts := make([]string, 0, n)
		for i := 1; i <= n; i++ {
			parts = append(parts, L.ToStringMeta(L.Get(i)).String())
		}
		log.Info(strings.Join(parts, "\t"))
		return 0
	}))
}
