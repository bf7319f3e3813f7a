package controllers

import (
	"context"
	"fmt"
	"time"
	vcV1 "visual-check/api/v1"
	"visual-check/internal/capture"
	"visual-check/internal/checker"
	"visual-check/internal/pipeline"
	"visual-check/internal/storage"

	"github.com/go-logr/logr"
	"golang.org/x/xerrors"
	batchV1 "k8s.io/api/batch/v1"
	coreV1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metaV1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/client-go/tools/record"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/controller"
	"sigs.k8s.io/controller-runtime/pkg/controller/controllerutil"
	"sigs.k8s.io/controller-runtime/pkg/predicate"
)

type ImageCheckReconciler struct {
	client.Client
	Log      logr.Logger
	Scheme   *runtime.Scheme
	Recorder record.EventRecorder
	Capturer capture.Capturer
	Storage  storage.Storage

	Distributed             bool
	DistributedCallbackHost string
	DistributedWorkerImage  string
}

func (r *ImageCheckReconciler) Reconcile(ctx context.Context, req ctrl.Request) (ctrl.Result, error) {
	imageCheck := &vcV1.ImageCheck{}
	if err := r.Get(ctx, req.NamespacedName, imageCheck); err != nil {
		if apierrors.IsNotFound(err) {
			return ctrl.Result{}, nil
		}
		return ctrl.Result{}, err
	}

	if imageCheck.Status.ObservedGeneration >= imageCheck.Generation {
		return ctrl.Result{}, nil
	}

	if r.Distributed {
		if err := r.createJob(ctx, imageCheck); err != nil {
			return ctrl.Result{}, err
		}
		imageCheck.Status.ObservedGeneration = imageCheck.Generation
		if err := r.Status().Update(ctx, imageCheck); err != nil {
			return ctrl.Result{}, err
		}
		return ctrl.Result{}, nil
	}

	if err := r.processImageCheck(ctx, imageCheck); err != nil {
		return ctrl.Result{}, err
	}

	return ctrl.Result{}, nil
}

func (r *ImageCheckReconciler) processImageCheck(ctx context.Context, imageCheck *vcV1.ImageCheck) error {
	options, err := checkerOptions(imageCheck.Spec.CheckOptions)
	if err != nil {
		applyError(&imageCheck.Status.CheckStatus, err, time.Now())
		r.Recorder.Eventf(imageCheck, coreV1.EventTypeWarning, "InvalidSpec", "Invalid check options: %s", err)
		return r.updateImageCheckStatus(ctx, imageCheck)
	}

	request := pipeline.Request{
		Kind:        "ImageCheck",
		ActualURL:   imageCheck.Spec.Actual,
		ExpectedURL: imageCheck.Spec.Expected,
		Options:     options,
	}
	if imageCheck.Spec.ActualCapture != nil {
		request.CaptureURL = imageCheck.Spec.ActualCapture.URL
		request.CaptureOptions = captureOptions(imageCheck.Spec.ActualCapture)
	}

	runner := &pipeline.Runner{
		Capturer: r.Capturer,
		Storage:  r.Storage,
	}

	outcome, err := runner.Run(ctx, request)
	if err != nil && !checker.IsToleranceExceeded(err) {
		if !isPermanent(err) {
			return xerrors.Errorf("failed to check images: %w", err)
		}
		r.Log.Info("Check could not complete", "imagecheck", imageCheck.Name, "error", err.Error())
		applyError(&imageCheck.Status.CheckStatus, err, time.Now())
		r.Recorder.Eventf(imageCheck, coreV1.EventTypeWarning, "CheckError", "Check could not complete: %q (%s)", imageCheck.Name, err)
		return r.updateImageCheckStatus(ctx, imageCheck)
	}

	applyOutcome(&imageCheck.Status.CheckStatus, outcome, err, time.Now())
	if err := r.updateImageCheckStatus(ctx, imageCheck); err != nil {
		return err
	}
	recordOutcome(r.Recorder, imageCheck, imageCheck.Name, &imageCheck.Status.CheckStatus)

	return nil
}

func (r *ImageCheckReconciler) updateImageCheckStatus(ctx context.Context, imageCheck *vcV1.ImageCheck) error {
	imageCheck.Status.ObservedGeneration = imageCheck.Generation
	if err := r.Status().Update(ctx, imageCheck); err != nil {
		return xerrors.Errorf("failed to update image check status: %w", err)
	}
	return nil
}

func (r *ImageCheckReconciler) createJob(ctx context.Context, imageCheck *vcV1.ImageCheck) error {
	jobName := fmt.Sprintf("imagecheck-%s-%d", imageCheck.Name, time.Now().Unix())

	actual := imageCheck.Spec.Actual
	if imageCheck.Spec.ActualCapture != nil {
		actual = ""
	}
	args := workerArgs(
		imageCheck.Spec.Expected,
		actual,
		imageCheck.Spec.ActualCapture,
		imageCheck.Spec.CheckOptions,
		"ImageCheck",
		callbackURL(r.DistributedCallbackHost, imageCheck.Namespace, "imagecheck", imageCheck.Name),
	)

	job := &batchV1.Job{
		ObjectMeta: metaV1.ObjectMeta{
			Name:      jobName,
			Namespace: imageCheck.Namespace,
		},
		Spec: batchV1.JobSpec{
			Template: coreV1.PodTemplateSpec{
				Spec: coreV1.PodSpec{
					RestartPolicy: coreV1.RestartPolicyNever,
					Containers: []coreV1.Container{
						{
							Name:  "worker",
							Image: r.DistributedWorkerImage,
							Args:  args,
							Env:   workerEnv(),
						},
					},
				},
			},
		},
	}

	if err := controllerutil.SetControllerReference(imageCheck, job, r.Scheme); err != nil {
		return xerrors.Errorf("failed to set controller reference: %w", err)
	}

	if err := r.Create(ctx, job); err != nil {
		if apierrors.IsAlreadyExists(err) {
			r.Log.Info("Job already exists", "job", jobName)
			return nil
		}
		return xerrors.Errorf("failed to create job: %w", err)
	}

	r.Recorder.Eventf(imageCheck, coreV1.EventTypeNormal, "JobCreated", "Created job %s for image check", jobName)
	return nil
}

func (r *ImageCheckReconciler) SetupWithManager(mgr ctrl.Manager) error {
	return ctrl.NewControllerManagedBy(mgr).
		For(&vcV1.ImageCheck{}).
		WithEventFilter(predicate.GenerationChangedPredicate{}).
		WithOptions(controller.Options{MaxConcurrentReconciles: 1}).
		Complete(r)
}
