package command

import (
	"github.com/autogenjobs/autogen/internal/model"
)

// Ref points to an object created earlier in the same job ("$go") or to a
// scene path.
func Ref(ref string) model.Value {
	return obj("ref", model.String(ref))
}

func AssetPath(path string) model.Value {
	return obj("assetPath", model.String(path))
}

func AssetGUID(guid string) model.Value {
	return obj("assetGuid", model.String(guid))
}

// Null clears an object reference.
func Null() model.Value {
	return obj("null", model.Bool(true))
}

// Enum names a value of enumType.
func Enum(enumType, name string) model.Value {
	return model.Map(map[string]model.Value{
		"enum": model.String(enumType),
		"name": model.String(name),
	})
}

// Color is an RGBA color, alpha defaults to 1 when omitted.
func Color(r, g, b float64, a ...float64) model.Value {
	alpha := 1.0
	if len(a) > 0 {
		alpha = a[0]
	}
	return numbers(r, g, b, alpha)
}

func Vector2(x, y float64) model.Value {
	return numbers(x, y)
}

func Vector3(x, y, z float64) model.Value {
	return numbers(x, y, z)
}

func obj(key string, v model.Value) model.Value {
	return model.Map(map[string]model.Value{key: v})
}

func numbers(ns ...float64) model.Value {
	items := make([]model.Value, len(ns))
	for i, n := range ns {
		items[i] = model.Number(n)
	}
	return model.List(items...)
}
