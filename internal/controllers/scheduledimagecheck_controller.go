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
	"github.com/robfig/cron/v3"
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

type ScheduledImageCheckReconciler struct {
	client.Client
	Log      logr.Logger
	Scheme   *runtime.Scheme
	Recorder record.EventRecorder
	Capturer capture.Capturer
	Storage  storage.Storage

	Distributed             bool
	DistributedCallbackHost string
	DistributedWorkerImage  string

	// Now is time.Now unless a test pins it.
	Now func() time.Time
}

var scheduleParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

func (r *ScheduledImageCheckReconciler) Reconcile(ctx context.Context, req ctrl.Request) (ctrl.Result, error) {
	scheduledImageCheck := &vcV1.ScheduledImageCheck{}
	if err := r.Get(ctx, req.NamespacedName, scheduledImageCheck); err != nil {
		if apierrors.IsNotFound(err) {
			return ctrl.Result{}, nil
		}
		return ctrl.Result{}, err
	}

	if r.Distributed {
		if err := r.createOrUpdateCronJob(ctx, scheduledImageCheck); err != nil {
			return ctrl.Result{}, err
		}
		return ctrl.Result{}, nil
	}

	schedule, err := scheduleParser.Parse(scheduledImageCheck.Spec.Schedule)
	if err != nil {
		r.Recorder.Eventf(scheduledImageCheck, coreV1.EventTypeWarning, "InvalidSchedule", "Invalid schedule %q: %s", scheduledImageCheck.Spec.Schedule, err)
		return ctrl.Result{}, nil
	}

	now := r.now()
	nextRun := schedule.Next(now.Add(-1 * time.Minute))
	if scheduledImageCheck.Status.LastCheckTime != nil {
		nextRun = schedule.Next(scheduledImageCheck.Status.LastCheckTime.Time)
	}

	if now.Before(nextRun) {
		requeueAfter := nextRun.Sub(now)
		return ctrl.Result{RequeueAfter: requeueAfter}, nil
	}

	if err := r.processScheduledImageCheck(ctx, scheduledImageCheck); err != nil {
		return ctrl.Result{}, err
	}

	nextRun = schedule.Next(now)
	return ctrl.Result{RequeueAfter: nextRun.Sub(now)}, nil
}

func (r *ScheduledImageCheckReconciler) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

func (r *ScheduledImageCheckReconciler) processScheduledImageCheck(ctx context.Context, scheduledImageCheck *vcV1.ScheduledImageCheck) error {
	options, err := checkerOptions(scheduledImageCheck.Spec.CheckOptions)
	if err != nil {
		applyError(&scheduledImageCheck.Status.CheckStatus, err, r.now())
		r.Recorder.Eventf(scheduledImageCheck, coreV1.EventTypeWarning, "InvalidSpec", "Invalid check options: %s", err)
		return r.updateScheduledImageCheckStatus(ctx, scheduledImageCheck)
	}

	// Without a fixed reference every run is compared with the previous one.
	expected := scheduledImageCheck.Spec.Expected
	if expected == "" {
		expected = scheduledImageCheck.Status.ActualURL
	}

	runner := &pipeline.Runner{
		Capturer: r.Capturer,
		Storage:  r.Storage,
		Now:      r.now,
	}

	outcome, err := runner.Run(ctx, pipeline.Request{
		Kind:           "ScheduledImageCheck",
		CaptureURL:     scheduledImageCheck.Spec.Capture.URL,
		CaptureOptions: captureOptions(&scheduledImageCheck.Spec.Capture),
		ExpectedURL:    expected,
		Options:        options,
	})
	if err != nil && !checker.IsToleranceExceeded(err) {
		if !isPermanent(err) {
			return xerrors.Errorf("failed to check images: %w", err)
		}
		r.Log.Info("Check could not complete", "scheduledimagecheck", scheduledImageCheck.Name, "error", err.Error())
		applyError(&scheduledImageCheck.Status.CheckStatus, err, r.now())
		r.Recorder.Eventf(scheduledImageCheck, coreV1.EventTypeWarning, "CheckError", "Check could not complete: %q (%s)", scheduledImageCheck.Name, err)
		return r.updateScheduledImageCheckStatus(ctx, scheduledImageCheck)
	}

	scheduledImageCheck.Status.BaselineURL = expected
	applyOutcome(&scheduledImageCheck.Status.CheckStatus, outcome, err, r.now())
	if err := r.updateScheduledImageCheckStatus(ctx, scheduledImageCheck); err != nil {
		return err
	}
	recordOutcome(r.Recorder, scheduledImageCheck, scheduledImageCheck.Name, &scheduledImageCheck.Status.CheckStatus)

	return nil
}

func (r *ScheduledImageCheckReconciler) updateScheduledImageCheckStatus(ctx context.Context, scheduledImageCheck *vcV1.ScheduledImageCheck) error {
	if err := r.Status().Update(ctx, scheduledImageCheck); err != nil {
		return xerrors.Errorf("failed to update scheduled image check status: %w", err)
	}
	return nil
}

func (r *ScheduledImageCheckReconciler) createOrUpdateCronJob(ctx context.Context, scheduledImageCheck *vcV1.ScheduledImageCheck) error {
	cronJobName := fmt.Sprintf("imagecheck-%s", scheduledImageCheck.Name)

	args := workerArgs(
		scheduledImageCheck.Spec.Expected,
		"",
		&scheduledImageCheck.Spec.Capture,
		scheduledImageCheck.Spec.CheckOptions,
		"ScheduledImageCheck",
		callbackURL(r.DistributedCallbackHost, scheduledImageCheck.Namespace, "scheduledimagecheck", scheduledImageCheck.Name),
	)

	cronJob := &batchV1.CronJob{
		ObjectMeta: metaV1.ObjectMeta{
			Name:      cronJobName,
			Namespace: scheduledImageCheck.Namespace,
		},
		Spec: batchV1.CronJobSpec{
			Schedule: scheduledImageCheck.Spec.Schedule,
			JobTemplate: batchV1.JobTemplateSpec{
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
			},
		},
	}

	if err := controllerutil.SetControllerReference(scheduledImageCheck, cronJob, r.Scheme); err != nil {
		return xerrors.Errorf("failed to set controller reference: %w", err)
	}

	existingCronJob := &batchV1.CronJob{}
	err := r.Get(ctx, client.ObjectKey{Name: cronJobName, Namespace: scheduledImageCheck.Namespace}, existingCronJob)
	if err != nil {
		if apierrors.IsNotFound(err) {
			if err := r.Create(ctx, cronJob); err != nil {
				return xerrors.Errorf("failed to create cronjob: %w", err)
			}
			r.Recorder.Eventf(scheduledImageCheck, coreV1.EventTypeNormal, "CronJobCreated", "Created CronJob %s", cronJobName)
		} else {
			return xerrors.Errorf("failed to get existing cronjob: %w", err)
		}
	} else {
		existingCronJob.Spec = cronJob.Spec
		if err := r.Update(ctx, existingCronJob); err != nil {
			return xerrors.Errorf("failed to update cronjob: %w", err)
		}
		r.Recorder.Eventf(scheduledImageCheck, coreV1.EventTypeNormal, "CronJobUpdated", "Updated CronJob %s", cronJobName)
	}

	return nil
}

func (r *ScheduledImageCheckReconciler) SetupWithManager(mgr ctrl.Manager) error {
	return ctrl.NewControllerManagedBy(mgr).
		For(&vcV1.ScheduledImageCheck{}).
		WithEventFilter(predicate.GenerationChangedPredicate{}).
		WithOptions(controller.Options{MaxConcurrentReconciles: 1}).
		Complete(r)
}
