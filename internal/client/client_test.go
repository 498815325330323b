package client

import "testing"

func TestBuildInitializeParams(t *testing.T) {
	params := buildInitializeParams(1234, "/workspace/project", map[string]any{"foo": "bar"})

	if params["processId"] != 1234 {
		t.Errorf("expected processId 1234, got %v", params["processId"])
	}
	if params["rootUri"] != "file:///workspace/project" {
		t.Errorf("unexpected rootUri: %v", params["rootUri"])
	}
	initOpts, ok := params["initializationOptions"].(map[string]any)
	if !ok || initOpts["foo"] != "bar" {
		t.Errorf("unexpected initializationOptions: %v", params["initializationOptions"])
	}
	folders, ok := params["workspaceFolders"].([]map[string]string)
	if !ok || len(folders) != 1 || folders[0]["uri"] != "file:///workspace/project" {
		t.Errorf("unexpected workspaceFolders: %v", params["workspaceFolders"])
	}
}

func TestBuildInitializeParamsEmptyRoot(t *testing.T) {
	params := buildInitializeParams(1, "", nil)
	if params["rootUri"] != "" {
		t.Errorf("expected empty rootUri, got %v", params["rootUri"])
	}
}

func TestClientCapabilitiesShape(t *testing.T) {
	caps := clientCapabilities()

	textDoc, ok := caps["textDocument"].(map[string]any)
	if !ok {
		t.Fatal("expected textDocument capabilities")
	}
	for _, key := range []string{"definition", "references", "hover", "rename", "callHierarchy", "typeHierarchy"} {
		if _, ok := textDoc[key]; !ok {
			t.Errorf("expected textDocument.%s to be declared", key)
		}
	}

	rename, ok := textDoc["rename"].(map[string]any)
	if !ok || rename["prepareSupport"] != true {
		t.Errorf("expected rename.prepareSupport to be true, got %v", textDoc["rename"])
	}

	workspace, ok := caps["workspace"].(map[string]any)
	if !ok || workspace["workspaceFolders"] != true {
		t.Errorf("expected workspace.workspaceFolders to be true, got %v", caps["workspace"])
	}
}
