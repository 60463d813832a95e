package docker

const labelPrefix = "werkbank."

const (
	// LabelOwnerID and LabelSessionID are stamped on every container and
	// volume we create; they are the reconciliation keys for orphans.
	LabelOwnerID   = labelPrefix + "owner_id"
	LabelSessionID = labelPrefix + "session_id"
	LabelManaged   = labelPrefix + "managed"
)

// ContainerName builds the deterministic container name for a session.
// Container identity is recomputed from this name on every operation;
// it survives daemon and orchestrator restarts without any cache.
func ContainerName(ownerID, sessionID string) string {
	return "werkbank-" + ownerID + "-" + sessionID
}

// VolumeName builds the deterministic workspace volume name. Distinct
// from the container name: the volume outlives any single container.
func VolumeName(ownerID, sessionID string) string {
	return "werkbank-ws-" + ownerID + "-" + sessionID
}

func sessionLabels(ownerID, sessionID string) map[string]string {
	return map[string]string{
		LabelOwnerID:   ownerID,
		LabelSessionID: sessionID,
		LabelManaged:   "true",
	}
}
