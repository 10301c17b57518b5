// Package command builds the commands understood by the editor side executor.
// The builders only assemble model.Command values, they do not validate them.
package command

import (
	"github.com/autogenjobs/autogen/internal/model"
)

const (
	CmdCreateGameObject       = "CreateGameObject"
	CmdAddComponent           = "AddComponent"
	CmdSetSerializedProperty  = "SetSerializedProperty"
	CmdSetTransform           = "SetTransform"
	CmdCreateScriptableObject = "CreateScriptableObject"
	CmdCreateOrEditPrefab     = "CreateOrEditPrefab"
	CmdInstantiatePrefab      = "InstantiatePrefabInScene"
	CmdSaveAssets             = "SaveAssets"
)

// GameObjectOptions are the optional arguments of CreateGameObject.
type GameObjectOptions struct {
	ParentPath string
	Position   model.Value // Vector3
	Rotation   model.Value // Vector3, euler angles
	Scale      model.Value // Vector3
	Ensure     *bool       // reuse an existing object of the same name, default true
	Out        string      // default "$go"
}

func CreateGameObject(name string, opts GameObjectOptions) model.Command {
	args := map[string]model.Value{
		"name":   model.String(name),
		"ensure": model.Bool(boolOr(opts.Ensure, true)),
	}
	setString(args, "parentPath", opts.ParentPath)
	setValue(args, "position", opts.Position)
	setValue(args, "rotation", opts.Rotation)
	setValue(args, "scale", opts.Scale)
	return model.Command{
		Cmd:  CmdCreateGameObject,
		Args: args,
		Out:  map[string]string{"go": stringOr(opts.Out, "$go")},
	}
}

type ComponentOptions struct {
	IfMissing *bool  // default true
	Out       string // default "$component"
}

func AddComponent(targetRef, componentType string, opts ComponentOptions) model.Command {
	return model.Command{
		Cmd: CmdAddComponent,
		Args: map[string]model.Value{
			"target":    Ref(targetRef),
			"type":      model.String(componentType),
			"ifMissing": model.Bool(boolOr(opts.IfMissing, true)),
		},
		Out: map[string]string{"component": stringOr(opts.Out, "$component")},
	}
}

// SetProperty assigns value to the serialized property propertyPath of the target.
func SetProperty(targetRef, propertyPath string, value model.Value) model.Command {
	return model.Command{
		Cmd: CmdSetSerializedProperty,
		Args: map[string]model.Value{
			"target":       Ref(targetRef),
			"propertyPath": model.String(propertyPath),
			"value":        value,
		},
	}
}

type TransformOptions struct {
	Position model.Value
	Rotation model.Value
	Scale    model.Value
	Space    string // "local" (default) or "world"
}

func SetTransform(targetRef string, opts TransformOptions) model.Command {
	args := map[string]model.Value{
		"target": Ref(targetRef),
		"space":  model.String(stringOr(opts.Space, "local")),
	}
	setValue(args, "position", opts.Position)
	setValue(args, "rotation", opts.Rotation)
	setValue(args, "scale", opts.Scale)
	return model.Command{Cmd: CmdSetTransform, Args: args}
}

type ScriptableObjectOptions struct {
	Init      map[string]model.Value // initial field values
	Overwrite bool
	Out       string // default "$asset"
}

func CreateScriptableObject(soType, assetPath string, opts ScriptableObjectOptions) model.Command {
	args := map[string]model.Value{
		"type":      model.String(soType),
		"assetPath": model.String(assetPath),
		"overwrite": model.Bool(opts.Overwrite),
	}
	if len(opts.Init) > 0 {
		args["init"] = model.Map(opts.Init)
	}
	return model.Command{
		Cmd:  CmdCreateScriptableObject,
		Args: args,
		Out:  map[string]string{"asset": stringOr(opts.Out, "$asset")},
	}
}

type PrefabOptions struct {
	RootName string
	Edits    []model.Value
	Out      string // default "$prefab"
}

func CreateOrEditPrefab(prefabPath string, opts PrefabOptions) model.Command {
	args := map[string]model.Value{
		"prefabPath": model.String(prefabPath),
	}
	setString(args, "rootName", opts.RootName)
	if len(opts.Edits) > 0 {
		args["edits"] = model.List(opts.Edits...)
	}
	return model.Command{
		Cmd:  CmdCreateOrEditPrefab,
		Args: args,
		Out:  map[string]string{"prefab": stringOr(opts.Out, "$prefab")},
	}
}

type InstanceOptions struct {
	NameOverride string
	ParentPath   string
	Position     model.Value
	Ensure       *bool  // default true
	Out          string // default "$instance"
}

func InstantiatePrefab(prefabPath string, opts InstanceOptions) model.Command {
	args := map[string]model.Value{
		"prefabPath": model.String(prefabPath),
		"ensure":     model.Bool(boolOr(opts.Ensure, true)),
	}
	setString(args, "nameOverride", opts.NameOverride)
	setString(args, "parentPath", opts.ParentPath)
	setValue(args, "position", opts.Position)
	return model.Command{
		Cmd:  CmdInstantiatePrefab,
		Args: args,
		Out:  map[string]string{"instance": stringOr(opts.Out, "$instance")},
	}
}

func SaveAssets(refresh bool) model.Command {
	return model.Command{
		Cmd:  CmdSaveAssets,
		Args: map[string]model.Value{"refresh": model.Bool(refresh)},
	}
}

func boolOr(b *bool, dflt bool) bool {
	if b == nil {
		return dflt
	}
	return *b
}

func stringOr(s, dflt string) string {
	if s == "" {
		return dflt
	}
	return s
}

func setString(args map[string]model.Value, key, s string) {
	if s != "" {
		args[key] = model.String(s)
	}
}

func setValue(args map[string]model.Value, key string, v model.Value) {
	if !v.IsNull() {
		args[key] = v
	}
}
