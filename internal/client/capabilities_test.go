package client

import (
	"encoding/json"
	"testing"
)

func decodeCapabilitySet(t *testing.T, raw string) capabilitySet {
	t.Helper()
	var cs capabilitySet
	if err := json.Unmarshal([]byte(raw), &cs); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return cs
}

func TestCapabilitySetBareBooleans(t *testing.T) {
	cs := decodeCapabilitySet(t, `{
		"hoverProvider": true,
		"definitionProvider": false,
		"referencesProvider": true
	}`)

	if !cs.supports(FeatureHover) {
		t.Error("expected hover to be supported")
	}
	if cs.supports(FeatureDefinition) {
		t.Error("expected definition not to be supported")
	}
	if !cs.supports(FeatureReferences) {
		t.Error("expected references to be supported")
	}
}

func TestCapabilitySetOptionsObjectCountsAsSupported(t *testing.T) {
	cs := decodeCapabilitySet(t, `{
		"completionProvider": {"triggerCharacters": ["."]}
	}`)

	if !cs.supports(FeatureCompletion) {
		t.Error("expected an options object to count as supported")
	}
}

func TestCapabilitySetAbsentFieldIsUnsupported(t *testing.T) {
	cs := decodeCapabilitySet(t, `{}`)

	if cs.supports(FeatureHover) {
		t.Error("expected absent capability to be unsupported")
	}
}

func TestRenameCapabilityBareBoolean(t *testing.T) {
	cs := decodeCapabilitySet(t, `{"renameProvider": true}`)

	if !cs.supports(FeatureRename) {
		t.Error("expected rename to be supported")
	}
	if cs.supports(FeaturePrepareRename) {
		t.Error("expected prepareRename not to be supported without the nested flag")
	}
}

func TestRenameCapabilityWithPrepareProvider(t *testing.T) {
	cs := decodeCapabilitySet(t, `{"renameProvider": {"prepareProvider": true}}`)

	if !cs.supports(FeatureRename) {
		t.Error("expected rename to be supported")
	}
	if !cs.supports(FeaturePrepareRename) {
		t.Error("expected prepareRename to be supported")
	}
}

func TestRenameCapabilityOptionsObjectWithoutPrepare(t *testing.T) {
	cs := decodeCapabilitySet(t, `{"renameProvider": {}}`)

	if !cs.supports(FeatureRename) {
		t.Error("expected an options object to count rename as supported")
	}
	if cs.supports(FeaturePrepareRename) {
		t.Error("expected prepareRename not to be supported when the nested flag is absent")
	}
}

func TestCapabilitySetUnknownFeatureDefaultsFalse(t *testing.T) {
	cs := decodeCapabilitySet(t, `{}`)
	if cs.supports(Feature(999)) {
		t.Error("expected an unrecognized feature constant to be unsupported")
	}
}
