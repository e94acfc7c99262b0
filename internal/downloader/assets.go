package downloader

// HealthDataAssets are the datasets hosted at healthdata.gov.
var HealthDataAssets = []Asset{
	{Name: "covid-19_community_profile_report_county", ID: "di4u-7yu6"},
	{Name: "covid-19_diagnostic_lab_testing", ID: "j8mb-icvb"},
	{Name: "estimated_icu", ID: "7ctx-gtb7"},
	{Name: "estimated_inpatient_all", ID: "jjp9-htie"},
	{Name: "estimated_inpatient_covid", ID: "py8k-j5rq"},
	{Name: "reported_hospital_utilization", ID: "6xf2-c3ie"},
	{Name: "reported_hospital_utilization_timeseries", ID: "g62h-syeh"},
	{Name: "reported_hospital_capacity_admissions_facility_level_weekly_average_timeseries", ID: "anag-cw7u"},
	{Name: "reported_hospital_capacity_admissions_facility_level_weekly_average_timeseries_raw", ID: "uqq2-txqb"},
}

// CDCAssets are the datasets hosted at data.cdc.gov.
var CDCAssets = []Asset{
	{Name: "united_states_covid_19_cases_and_deaths_by_state", ID: "9mfq-cb36"},
	{Name: "excess_deaths_associated_with_covid_19", ID: "xkkf-xrst"},
	{Name: "covid_vaccinations_state", ID: "unsk-b7fc"},
	{Name: "covid_vaccinations_county", ID: "8xkx-amqh"},
	{Name: "covid_vaccine_allocations_state_pfizer", ID: "saz5-9hgg"},
	{Name: "covid_vaccine_allocations_state_moderna", ID: "b7pe-5nws"},
	{Name: "covid_vaccine_allocations_state_janssen", ID: "w9zu-fywh"},
	{Name: "nationwide_commercial_laborator_seroprevalence_survey", ID: "d2tw-32xv"},
	{Name: "nationwide_blood_donor_seroprevalence", ID: "wi5c-cscz"},
	{Name: "rates_of_covid_19_cases_or_deaths_by_age_group_and_vaccination_status", ID: "3rge-nu2a"},
	{Name: "united_states_covid_19_community_levels_by_county", ID: "3nnm-4jni"},
}
