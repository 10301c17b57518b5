package command_test

import (
	"encoding/json"
	"testing"

	"github.com/autogenjobs/autogen/internal/command"
	"github.com/autogenjobs/autogen/internal/model"
	"github.com/stretchr/testify/require"
)

func TestBuilders(t *testing.T) {
	t.Parallel()
	no := false

	var testCases = []struct {
		scenario string
		given    any
		then     string
	}{
		{
			"create game object",
			command.CreateGameObject("Player", command.GameObjectOptions{}),
			`{"cmd":"CreateGameObject","args":{"name":"Player","ensure":true},"out":{"go":"$go"}}`,
		},
		{
			"create game object with options",
			command.CreateGameObject("Enemy", command.GameObjectOptions{
				ParentPath: "World/Enemies",
				Position:   command.Vector3(1, 2, 3),
				Scale:      command.Vector3(2, 2, 2),
				Ensure:     &no,
				Out:        "$enemy",
			}),
			`{"cmd":"CreateGameObject","args":{"name":"Enemy","ensure":false,"parentPath":"World/Enemies","position":[1,2,3],"scale":[2,2,2]},"out":{"go":"$enemy"}}`,
		},
		{
			"add component",
			command.AddComponent("$go", "UnityEngine.BoxCollider", command.ComponentOptions{}),
			`{"cmd":"AddComponent","args":{"target":{"ref":"$go"},"type":"UnityEngine.BoxCollider","ifMissing":true},"out":{"component":"$component"}}`,
		},
		{
			"set property",
			command.SetProperty("$component", "m_Size", command.Vector3(1, 1, 1)),
			`{"cmd":"SetSerializedProperty","args":{"target":{"ref":"$component"},"propertyPath":"m_Size","value":[1,1,1]}}`,
		},
		{
			"set transform",
			command.SetTransform("$go", command.TransformOptions{Rotation: command.Vector3(0, 90, 0)}),
			`{"cmd":"SetTransform","args":{"target":{"ref":"$go"},"space":"local","rotation":[0,90,0]}}`,
		},
		{
			"create scriptable object",
			command.CreateScriptableObject("Game.LevelConfig", "Assets/AutoGen/Configs/L1.asset", command.ScriptableObjectOptions{
				Init: map[string]model.Value{"difficulty": model.Int(3)},
			}),
			`{"cmd":"CreateScriptableObject","args":{"type":"Game.LevelConfig","assetPath":"Assets/AutoGen/Configs/L1.asset","overwrite":false,"init":{"difficulty":3}},"out":{"asset":"$asset"}}`,
		},
		{
			"create prefab",
			command.CreateOrEditPrefab("Assets/AutoGen/Prefabs/Crate.prefab", command.PrefabOptions{RootName: "Crate"}),
			`{"cmd":"CreateOrEditPrefab","args":{"prefabPath":"Assets/AutoGen/Prefabs/Crate.prefab","rootName":"Crate"},"out":{"prefab":"$prefab"}}`,
		},
		{
			"instantiate prefab",
			command.InstantiatePrefab("Assets/AutoGen/Prefabs/Crate.prefab", command.InstanceOptions{NameOverride: "Crate 1"}),
			`{"cmd":"InstantiatePrefabInScene","args":{"prefabPath":"Assets/AutoGen/Prefabs/Crate.prefab","ensure":true,"nameOverride":"Crate 1"},"out":{"instance":"$instance"}}`,
		},
		{
			"save assets",
			command.SaveAssets(true),
			`{"cmd":"SaveAssets","args":{"refresh":true}}`,
		},
	}

	for _, tt := range testCases {
		t.Run(tt.scenario, func(t *testing.T) {
			t.Parallel()
			b, err := json.Marshal(tt.given)
			require.NoError(t, err)
			require.JSONEq(t, tt.then, string(b))
		})
	}
}

func TestValues(t *testing.T) {
	t.Parallel()

	var testCases = []struct {
		scenario string
		given    model.Value
		then     string
	}{
		{"ref", command.Ref("$go"), `{"ref":"$go"}`},
		{"asset path", command.AssetPath("Assets/A.mat"), `{"assetPath":"Assets/A.mat"}`},
		{"asset guid", command.AssetGUID("0f1e"), `{"assetGuid":"0f1e"}`},
		{"null", command.Null(), `{"null":true}`},
		{"enum", command.Enum("UnityEngine.LightType", "Point"), `{"enum":"UnityEngine.LightType","name":"Point"}`},
		{"color", command.Color(1, 0.5, 0), `[1,0.5,0,1]`},
		{"color alpha", command.Color(1, 0.5, 0, 0.25), `[1,0.5,0,0.25]`},
		{"vector2", command.Vector2(3, 4), `[3,4]`},
		{"vector3", command.Vector3(0, -1, 2.5), `[0,-1,2.5]`},
	}

	for _, tt := range testCases {
		t.Run(tt.scenario, func(t *testing.T) {
			t.Parallel()
			b, err := json.Marshal(tt.given)
			require.NoError(t, err)
			require.JSONEq(t, tt.then, string(b))
		})
	}
}
