package v1

import (
	metaV1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// ImageCheckSpec defines the desired state of ImageCheck
type ImageCheckSpec struct {
	// Actual is the storage URL of the image under test. Ignored when ActualCapture is set.
	Actual string `json:"actual,omitempty"`
	// ActualCapture renders the image under test from a web page
	ActualCapture *CaptureSpec `json:"actualCapture,omitempty"`
	// Expected is the storage URL of the reference image
	// +kubebuilder:validation:Required
	Expected string `json:"expected"`

	CheckOptions `json:",inline"`
}

// ImageCheckStatus defines the observed state of ImageCheck
type ImageCheckStatus struct {
	ObservedGeneration int64 `json:"observedGeneration,omitempty"`

	CheckStatus `json:",inline"`
}

// +kubebuilder:object:root=true
// +kubebuilder:subresource:status
// +kubebuilder:printcolumn:name="Metric",type=string,JSONPath=`.status.metric`
// +kubebuilder:printcolumn:name="Score",type=number,JSONPath=`.status.score`
// +kubebuilder:printcolumn:name="Passed",type=boolean,JSONPath=`.status.passed`

// ImageCheck is the schema for the imagechecks API
type ImageCheck struct {
	metaV1.TypeMeta   `json:",inline"`
	metaV1.ObjectMeta `json:"metadata,omitempty"`

	Spec   ImageCheckSpec   `json:"spec,omitempty"`
	Status ImageCheckStatus `json:"status,omitempty"`
}

// +kubebuilder:object:root=true

// ImageCheckList contains a list of ImageCheck
type ImageCheckList struct {
	metaV1.TypeMeta `json:",inline"`
	metaV1.ListMeta `json:"metadata,omitempty"`
	Items           []ImageCheck `json:"items"`
}

func init() {
	SchemeBuilder.Register(&ImageCheck{}, &ImageCheckList{})
}
