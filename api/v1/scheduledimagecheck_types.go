package v1

import (
	metaV1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// ScheduledImageCheckSpec defines the desired state of ScheduledImageCheck
type ScheduledImageCheckSpec struct {
	// Schedule in Cron format, see https://en.wikipedia.org/wiki/Cron.
	Schedule string `json:"schedule"`
	// Capture is the page rendered on every run
	Capture CaptureSpec `json:"capture"`
	// Expected is the storage URL of the reference image. When empty, each run is compared with the previous capture.
	Expected string `json:"expected,omitempty"`

	CheckOptions `json:",inline"`
}

// ScheduledImageCheckStatus defines the observed state of ScheduledImageCheck
type ScheduledImageCheckStatus struct {
	// BaselineURL is the storage URL of the image the latest capture was compared with
	BaselineURL string `json:"baselineUrl,omitempty"`

	CheckStatus `json:",inline"`
}

// +kubebuilder:object:root=true
// +kubebuilder:subresource:status
// +kubebuilder:printcolumn:name="Schedule",type=string,JSONPath=`.spec.schedule`
// +kubebuilder:printcolumn:name="Passed",type=boolean,JSONPath=`.status.passed`
// +kubebuilder:printcolumn:name="Last Check",type=date,JSONPath=`.status.lastCheckTime`

// ScheduledImageCheck is the schema for the scheduledimagechecks API
type ScheduledImageCheck struct {
	metaV1.TypeMeta   `json:",inline"`
	metaV1.ObjectMeta `json:"metadata,omitempty"`

	Spec   ScheduledImageCheckSpec   `json:"spec,omitempty"`
	Status ScheduledImageCheckStatus `json:"status,omitempty"`
}

// +kubebuilder:object:root=true

// ScheduledImageCheckList contains a list of ScheduledImageCheck
type ScheduledImageCheckList struct {
	metaV1.TypeMeta `json:",inline"`
	metaV1.ListMeta `json:"metadata,omitempty"`
	Items           []ScheduledImageCheck `json:"items"`
}

func init() {
	SchemeBuilder.Register(&ScheduledImageCheck{}, &ScheduledImageCheckList{})
}
