package model

// NotificationVehicleUpdate tags a change of vehicle state.
const NotificationVehicleUpdate = "vehicle_update"

// Notification is the live-update message pushed to subscribers. It is a
// cache invalidation hint: receivers re-fetch the vehicle to learn its state.
type Notification struct {
	Type      string `json:"type"`
	VehicleID string `json:"vehicleId"`
}

// VehicleUpdated builds the notification emitted after a vehicle mutation.
func VehicleUpdated(id string) Notification {
	return Notification{Type: NotificationVehicleUpdate, VehicleID: id}
}
